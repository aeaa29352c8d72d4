package slack

import (
	"fmt"
	"net/http"

	slackapi "github.com/slack-go/slack"
)

// VerifyRequest checks the X-Slack-Signature header against the body.
func VerifyRequest(header http.Header, body []byte, signingSecret string) error {
	sv, err := slackapi.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return fmt.Errorf("slack signature headers: %w", err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("slack signature hash: %w", err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("slack signature mismatch: %w", err)
	}
	return nil
}
