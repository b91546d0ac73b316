package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"wl-portal/internal/config"
)

var (
	approvedTemplate = template.Must(template.New("approved").Parse(
		"🎉 **Congratulations, <@{{.ApplicantID}}>! Your whitelist application has been approved. See you in the city!**"))

	rejectedTemplate = template.Must(template.New("rejected").Parse(
		"❌ <@{{.ApplicantID}}>, your whitelist application was not approved. Attempts remaining: `{{.RemainingAttempts}}`" +
			"{{if .RejectReason}}\n**Reason:** {{.RejectReason}}{{end}}" +
			"{{if .CooldownUntil}}\nYou can apply again after {{.CooldownUntil.UTC.Format \"2006-01-02 15:04 MST\"}}.{{end}}"))

	submittedTemplate = template.Must(template.New("submitted").Parse(
		"📝 New whitelist application #{{.ApplicationID}} from **{{.DisplayIdentity}}** is waiting for review."))
)

// DiscordDispatcher posts messages and manages member roles through the Discord REST API
type DiscordDispatcher struct {
	cfg    *config.NotifyConfig
	client *http.Client
}

// NewDiscordDispatcher creates a new Discord dispatcher
func NewDiscordDispatcher(cfg *config.NotifyConfig, client *http.Client) *DiscordDispatcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DiscordDispatcher{cfg: cfg, client: client}
}

// NotifyResult posts the review result in the result channel, mentioning only the applicant
func (d *DiscordDispatcher) NotifyResult(ctx context.Context, r Result) error {
	if d.cfg.ResultChannelID == "" {
		return nil
	}

	tmpl := rejectedTemplate
	if r.Approved {
		tmpl = approvedTemplate
	}

	content, err := render(tmpl, r)
	if err != nil {
		return err
	}

	return d.postMessage(ctx, d.cfg.ResultChannelID, content, []string{r.ApplicantID})
}

// NotifySubmitted posts a new-application notice in the staff channel
func (d *DiscordDispatcher) NotifySubmitted(ctx context.Context, s Submission) error {
	if d.cfg.StaffChannelID == "" {
		return nil
	}

	content, err := render(submittedTemplate, s)
	if err != nil {
		return err
	}

	return d.postMessage(ctx, d.cfg.StaffChannelID, content, nil)
}

// AssignRole grants the approved role, or the suspension role matching the
// attempt level, and removes the roles that no longer apply
func (d *DiscordDispatcher) AssignRole(ctx context.Context, ra RoleAssignment) error {
	if d.cfg.GuildID == "" {
		return nil
	}

	target := d.targetRole(ra)

	var remove []string
	if d.cfg.ApprovedRoleID != "" && d.cfg.ApprovedRoleID != target {
		remove = append(remove, d.cfg.ApprovedRoleID)
	}
	for _, role := range d.cfg.SuspensionRoleIDs {
		if role != target {
			remove = append(remove, role)
		}
	}

	for _, role := range remove {
		if err := d.memberRole(ctx, http.MethodDelete, ra.ApplicantID, role); err != nil {
			return err
		}
	}

	if target == "" {
		return nil
	}
	return d.memberRole(ctx, http.MethodPut, ra.ApplicantID, target)
}

func (d *DiscordDispatcher) targetRole(ra RoleAssignment) string {
	if ra.Approved {
		return d.cfg.ApprovedRoleID
	}
	roles := d.cfg.SuspensionRoleIDs
	if len(roles) == 0 {
		return ""
	}
	level := ra.AttemptLevel
	if level < 1 {
		level = 1
	}
	if level > len(roles) {
		level = len(roles)
	}
	return roles[level-1]
}

type allowedMentions struct {
	Parse []string `json:"parse"`
	Users []string `json:"users,omitempty"`
}

type messagePayload struct {
	Content         string          `json:"content"`
	AllowedMentions allowedMentions `json:"allowed_mentions"`
}

func (d *DiscordDispatcher) postMessage(ctx context.Context, channelID, content string, mentionUsers []string) error {
	body, err := json.Marshal(messagePayload{
		Content:         content,
		AllowedMentions: allowedMentions{Parse: []string{}, Users: mentionUsers},
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	return d.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channelID), body)
}

func (d *DiscordDispatcher) memberRole(ctx context.Context, method, userID, roleID string) error {
	path := fmt.Sprintf("/guilds/%s/members/%s/roles/%s", d.cfg.GuildID, userID, roleID)
	err := d.do(ctx, method, path, nil)

	// removing a role the member does not hold is not an error
	var apiErr *APIError
	if method == http.MethodDelete && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

// APIError is a non-2xx response from the Discord API
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (d *DiscordDispatcher) do(ctx context.Context, method, path string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(d.cfg.APIBaseURL, "/")+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+d.cfg.BotToken)
	req.Header.Set("User-Agent", "DiscordBot (wl-portal, 1.0)")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s message: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
