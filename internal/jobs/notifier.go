package jobs

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ecohealth/airflow/internal/config"
)

// Notifier sends the simulation-complete e-mail the original task
// trio's callback step sent, with an optional narrative paragraph
// generated from the sampled itineraries when an OpenAI key is
// configured.
type Notifier struct {
	smtp      config.SMTPConfig
	flirtBase string
	fromEmail string
	openai    *openai.Client
}

// NewNotifier builds a Notifier from the service configuration. The
// OpenAI client is left nil (narrative summaries skipped) when no API
// key is configured.
func NewNotifier(cfg *config.Config, fromEmail string) *Notifier {
	n := &Notifier{
		smtp:      cfg.SMTP,
		flirtBase: cfg.FlirtBase,
		fromEmail: fromEmail,
	}
	if cfg.OpenAIAPIKey != "" {
		n.openai = openai.NewClient(cfg.OpenAIAPIKey)
	}
	return n
}

// NotifyCompletion sends the completion e-mail for a simulation to
// email, including a narrative summary of the top destinations when an
// OpenAI client is configured.
func (n *Notifier) NotifyCompletion(ctx context.Context, email, simulationID string, itineraries [][]string) error {
	body := fmt.Sprintf("Your FLIRT simulation has completed. Please click the link below to view the results:\n\n%s/simulation/%s\n",
		n.flirtBase, simulationID)

	if n.openai != nil {
		if narrative, err := n.narrative(ctx, itineraries); err == nil && narrative != "" {
			body = narrative + "\n\n" + body
		}
	}

	msg := buildMessage(n.fromEmail, email, "FLIRT simulation complete", body)
	addr := fmt.Sprintf("%s:%d", n.smtp.Host, n.smtp.Port)

	var auth smtp.Auth
	if n.smtp.User != "" {
		auth = smtp.PlainAuth("", n.smtp.User, n.smtp.Password, n.smtp.Host)
	}
	if err := smtp.SendMail(addr, auth, n.fromEmail, []string{email}, msg); err != nil {
		return fmt.Errorf("send completion email: %w", err)
	}
	return nil
}

// narrative asks go-openai for a one-paragraph summary of where this
// simulation's itineraries terminated, for inclusion in the completion
// e-mail.
func (n *Notifier) narrative(ctx context.Context, itineraries [][]string) (string, error) {
	if len(itineraries) == 0 {
		return "", nil
	}

	counts := map[string]int{}
	for _, itin := range itineraries {
		if len(itin) == 0 {
			continue
		}
		counts[itin[len(itin)-1]]++
	}

	var sb strings.Builder
	sb.WriteString("Destination counts:\n")
	for destination, count := range counts {
		fmt.Fprintf(&sb, "%s: %d\n", destination, count)
	}

	resp, err := n.openai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT3Dot5Turbo,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You summarize airport passenger-flow simulation results in one short paragraph for a completion e-mail.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: sb.String(),
			},
		},
		MaxTokens: 200,
	})
	if err != nil {
		return "", fmt.Errorf("generate narrative: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func buildMessage(from, to, subject, body string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}
