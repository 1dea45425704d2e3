package importer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Story is one importable text file. Frontmatter is optional.
type Story struct {
	Path       string   `yaml:"-"`
	Summary    string   `yaml:"summary"`
	Importance *float64 `yaml:"importance"`
	Body       string   `yaml:"-"`
}

var storyExts = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// ScanStories walks each directory in dirs for .md, .markdown and .txt files
// and parses optional YAML frontmatter (summary, importance). Missing
// directories are skipped; files with an empty body are ignored. Results are
// sorted by path.
func ScanStories(dirs []string) ([]Story, error) {
	var stories []Story

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) && path == dir {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() || !storyExts[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			story, err := parseStory(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if story.Body == "" {
				return nil
			}
			story.Path = path
			stories = append(stories, story)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
	}

	sort.Slice(stories, func(i, j int) bool { return stories[i].Path < stories[j].Path })
	return stories, nil
}

// parseStory splits optional --- delimited frontmatter from the body.
func parseStory(data []byte) (Story, error) {
	content := strings.TrimSpace(string(data))
	if !strings.HasPrefix(content, "---") {
		return Story{Body: content}, nil
	}

	rest := content[3:]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return Story{}, fmt.Errorf("no closing frontmatter delimiter")
	}

	var story Story
	if err := yaml.Unmarshal([]byte(rest[:idx]), &story); err != nil {
		return Story{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	story.Summary = strings.TrimSpace(story.Summary)
	story.Body = strings.TrimSpace(rest[idx+len("\n---"):])
	return story, nil
}
