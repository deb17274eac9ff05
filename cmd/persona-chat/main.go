package main

import (
	"flag"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"persona-rag/internal/client"
	"persona-rag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var serverURL string
	var topK int
	flag.StringVar(&serverURL, "server", "http://localhost:8000", "Base URL of the persona-rag server")
	flag.IntVar(&topK, "top-k", 3, "Number of source chunks to retrieve per question")
	flag.Parse()

	m := tui.New(client.New(serverURL), topK)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}
