package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"dompeassist/internal/app"
	"dompeassist/internal/models"
	"dompeassist/internal/service/ai"
)

var exitWords = map[string]bool{"exit": true, "quit": true, "bye": true}

func newChatCmd(root *rootOptions) *cobra.Command {
	var direct bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			application, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			s := &chatSession{
				app:    application,
				direct: direct,
				out:    cmd.OutOrStdout(),
			}
			return s.run(cmd, cmd.InOrStdin())
		},
	}
	cmd.Flags().BoolVar(&direct, "direct", false, "stream a plain completion instead of running the answer pipeline")
	return cmd
}

type chatSession struct {
	app     *app.App
	direct  bool
	out     io.Writer
	history []models.ChatTurn
}

func (s *chatSession) run(cmd *cobra.Command, in io.Reader) error {
	fmt.Fprintln(s.out, "DompeAssist IT Support Bot")
	fmt.Fprintln(s.out, "Type your IT questions below. Type 'exit' to quit.")
	fmt.Fprintln(s.out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if exitWords[strings.ToLower(input)] {
			fmt.Fprintln(s.out, "\nThank you for using DompeAssist. Goodbye!")
			return nil
		}

		fmt.Fprint(s.out, "DompeAssist: ")
		reply, err := s.reply(cmd, input)
		if err != nil {
			fmt.Fprintf(s.out, "\nError: %v\n", err)
			continue
		}
		s.history = append(s.history,
			models.ChatTurn{Role: models.RoleUser, Content: input},
			models.ChatTurn{Role: models.RoleAssistant, Content: reply},
		)
	}
}

func (s *chatSession) reply(cmd *cobra.Command, input string) (string, error) {
	ctx := cmd.Context()
	if s.direct {
		conv := s.app.Pipeline.BuildConversation(input, s.history)
		reply, err := s.app.AI.Stream(ctx, conv, ai.CallOptions{Temperature: 0.7, MaxTokens: s.app.Config.Assistant.FinalMaxTokens}, func(delta string) error {
			_, err := io.WriteString(s.out, delta)
			return err
		})
		fmt.Fprintln(s.out)
		return reply, err
	}

	answer, err := s.app.Pipeline.Answer(ctx, input, s.history)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(s.out, answer.Response)
	if answer.SearchResult != nil {
		fmt.Fprintf(s.out, "[%s] %s\n", answer.SearchResult.Source, answer.SearchResult.AbstractText)
		for _, topic := range answer.SearchResult.RelatedTopics {
			fmt.Fprintf(s.out, "  - %s (%s)\n", topic.Text, topic.URL)
		}
	}
	return answer.Response, nil
}
