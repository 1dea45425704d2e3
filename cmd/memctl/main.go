package main

import "github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/cli"

func main() {
	cli.Execute()
}
