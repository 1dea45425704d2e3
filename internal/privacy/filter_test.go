package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no private block", "  the knight rode home  ", "the knight rode home"},
		{"single block", "the knight <private>was afraid</private> rode home", "the knight  rode home"},
		{"several blocks", "a <private>x</private> b <private>y</private> c", "a  b  c"},
		{"multiline block", "before <private>\nline one\nline two\n</private> after", "before  after"},
		{"non-greedy", "<private>outer <private>inner</private> still</private> visible", "still</private> visible"},
		{"block at start", "<private>secret</private> visible", "visible"},
		{"block at end", "visible <private>secret</private>", "visible"},
		{"entirely private", "  <private>a</private> <private>b</private> ", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redact(tt.input))
		})
	}
}
