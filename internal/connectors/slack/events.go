package slack

import (
	"fmt"
	"net/http"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

// Webhook is a parsed Events API delivery.
type Webhook struct {
	// Challenge is set for url_verification handshakes; the caller echoes
	// it back and stops.
	Challenge string

	// TeamID identifies the workspace the delivery belongs to.
	TeamID string

	// Events are the mapped domain events, possibly empty for payload
	// types the connector does not consume.
	Events []domain.Event
}

// VerifySignature checks the X-Slack-Signature HMAC over the raw request
// body. Must pass before the payload is parsed; a failure means the request
// is discarded with no side effects.
func VerifySignature(header http.Header, body []byte, signingSecret string) error {
	verifier, err := slackapi.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return fmt.Errorf("reading signature headers: %w", err)
	}
	if _, err := verifier.Write(body); err != nil {
		return fmt.Errorf("hashing body: %w", err)
	}
	if err := verifier.Ensure(); err != nil {
		return fmt.Errorf("verifying signature: %w", err)
	}
	return nil
}

// ParseWebhook maps a verified Events API body to domain events.
func ParseWebhook(body []byte) (*Webhook, error) {
	event, err := slackevents.ParseEvent(body, slackevents.OptionNoVerifyToken())
	if err != nil {
		return nil, fmt.Errorf("parsing event payload: %w", err)
	}

	if event.Type == slackevents.URLVerification {
		ch, ok := event.Data.(*slackevents.EventsAPIURLVerificationEvent)
		if !ok {
			return nil, fmt.Errorf("malformed url_verification payload")
		}
		return &Webhook{Challenge: ch.Challenge}, nil
	}

	hook := &Webhook{TeamID: event.TeamID}
	if event.Type != slackevents.CallbackEvent {
		return hook, nil
	}

	if mapped, ok := mapInnerEvent(event.TeamID, event.InnerEvent); ok {
		hook.Events = append(hook.Events, mapped)
	}
	return hook, nil
}

// mapInnerEvent translates one callback event to the domain union. Payload
// types outside the union are dropped.
func mapInnerEvent(teamID string, inner slackevents.EventsAPIInnerEvent) (domain.Event, bool) {
	switch ev := inner.Data.(type) {
	case *slackevents.ChannelCreatedEvent:
		return domain.Event{
			Kind:          domain.EventResourceChanged,
			TeamID:        teamID,
			ResourceID:    ev.Channel.ID,
			ResourceTitle: ev.Channel.Name,
		}, true

	case *slackevents.ChannelRenameEvent:
		return domain.Event{
			Kind:          domain.EventResourceChanged,
			TeamID:        teamID,
			ResourceID:    ev.Channel.ID,
			ResourceTitle: ev.Channel.Name,
		}, true

	case *slackevents.ChannelUnarchiveEvent:
		return domain.Event{
			Kind:       domain.EventResourceChanged,
			TeamID:     teamID,
			ResourceID: ev.Channel,
			UserID:     ev.User,
		}, true

	case *slackevents.ChannelArchiveEvent:
		return domain.Event{
			Kind:       domain.EventResourceChanged,
			TeamID:     teamID,
			ResourceID: ev.Channel,
			Removed:    true,
			UserID:     ev.User,
		}, true

	case *slackevents.ChannelDeletedEvent:
		return domain.Event{
			Kind:       domain.EventResourceChanged,
			TeamID:     teamID,
			ResourceID: ev.Channel,
			Removed:    true,
		}, true

	case *slackevents.MemberJoinedChannelEvent:
		return domain.Event{
			Kind:       domain.EventMembershipChanged,
			TeamID:     teamID,
			ResourceID: ev.Channel,
			UserID:     ev.User,
		}, true

	case *slackevents.MemberLeftChannelEvent:
		return domain.Event{
			Kind:       domain.EventMembershipChanged,
			TeamID:     teamID,
			ResourceID: ev.Channel,
			Removed:    true,
			UserID:     ev.User,
		}, true

	case *slackevents.AppMentionEvent:
		return domain.Event{
			Kind:        domain.EventMessage,
			TeamID:      teamID,
			ResourceID:  ev.Channel,
			MessageTS:   ev.TimeStamp,
			ThreadTS:    ev.ThreadTimeStamp,
			MessageText: ev.Text,
			UserID:      ev.User,
		}, true

	case *slackevents.MessageEvent:
		// Ordinary channel messages mark the channel changed for the
		// next incremental pass. Bot echoes and subtypes are noise.
		if ev.ChannelType != "channel" || ev.SubType != "" || ev.BotID != "" {
			return domain.Event{}, false
		}
		return domain.Event{
			Kind:       domain.EventResourceChanged,
			TeamID:     teamID,
			ResourceID: ev.Channel,
			UserID:     ev.User,
		}, true

	case *slackevents.AppUninstalledEvent:
		return domain.Event{
			Kind:   domain.EventUninstalled,
			TeamID: teamID,
		}, true

	case *slackevents.TokensRevokedEvent:
		return domain.Event{
			Kind:   domain.EventUninstalled,
			TeamID: teamID,
		}, true
	}

	return domain.Event{}, false
}
