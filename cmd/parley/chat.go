package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"parley/internal/agent"
	"parley/internal/llm"
)

var (
	promptStyle   = color.New(color.FgCyan, color.Bold).SprintFunc()
	answerStyle   = color.New(color.FgGreen).SprintFunc()
	escalateStyle = color.New(color.FgYellow).SprintFunc()
	linkStyle     = color.New(color.FgHiBlack).SprintFunc()
	errorStyle    = color.New(color.FgRed).SprintFunc()
)

func newChatCommand() *cobra.Command {
	var (
		sessionID string
		mock      bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var rt *runtime
			if mock {
				client := llm.NewScriptedClient().
					ReplyText("(mock) I received your message. Configure an LLM backend to get real answers.")
				rt, err = buildRuntimeWithClient(cmd.Context(), cfg, client)
			} else {
				rt, err = buildRuntime(cmd.Context(), cfg)
			}
			if err != nil {
				return err
			}
			defer rt.Close()

			return runChatLoop(cmd, rt, sessionID)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Resume an existing session by ID")
	cmd.Flags().BoolVar(&mock, "mock", false, "Use a canned model backend (no network)")
	return cmd
}

func runChatLoop(cmd *cobra.Command, rt *runtime, sessionID string) error {
	fmt.Println("parley chat. Type your message, or 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	pendingCallID := ""
	for {
		if pendingCallID != "" {
			fmt.Print(promptStyle("human> "))
		} else {
			fmt.Print(promptStyle("you> "))
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		result, err := rt.coordinator.ProcessTurn(cmd.Context(), agent.TurnRequest{
			SessionID:    sessionID,
			Input:        input,
			ResumeCallID: pendingCallID,
		})
		if err != nil {
			fmt.Println(errorStyle("error: " + err.Error()))
			continue
		}
		sessionID = result.SessionID
		pendingCallID = ""

		if result.Suspended() {
			pendingCallID = result.PendingCallID
			fmt.Println(escalateStyle("The agent needs your help:"))
			fmt.Println(escalateStyle("  " + result.PendingQuestion))
			continue
		}

		fmt.Println(answerStyle(result.FinalText))
		for _, url := range result.ResourceURLs {
			fmt.Println(linkStyle("  source: " + url))
		}
		for _, url := range result.ImageURLs {
			fmt.Println(linkStyle("  image:  " + url))
		}
	}
}
