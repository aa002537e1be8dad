package whatsapp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mamadbah2/poultryledger/internal/config"
	"github.com/mamadbah2/poultryledger/internal/domain/models"
	"github.com/mamadbah2/poultryledger/internal/service/commands"
)

type sent struct{ to, body string }

type fakeClient struct {
	sent []sent
	err  error
}

func (f *fakeClient) SendText(_ context.Context, to, body string) ([]string, error) {
	f.sent = append(f.sent, sent{to, body})
	return []string{"wamid"}, f.err
}

type fakeDispatcher struct {
	reply string
	err   error
	got   []models.Command
}

func (f *fakeDispatcher) HandleCommand(_ context.Context, cmd models.Command, _ string) (string, error) {
	f.got = append(f.got, cmd)
	return f.reply, f.err
}

const manager = "224600000000"

func payload(msgs ...models.InboundMessage) models.WebhookPayload {
	return models.WebhookPayload{Entry: []models.WebhookEntry{{Changes: []models.WebhookChange{{Value: models.WebhookValue{Messages: msgs}}}}}}
}

func text(from, body string) models.InboundMessage {
	return models.InboundMessage{From: from, ID: "m", Type: "text", Text: &models.TextContent{Body: body}}
}

func TestVerifyWebhookToken(t *testing.T) {
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{VerifyToken: "s3cret"}, &fakeClient{}, &fakeDispatcher{}, nil)

	tests := []struct {
		name, mode, token string
		wantErr           bool
	}{
		{"ok", "subscribe", "s3cret", false},
		{"wrong token", "subscribe", "nope", true},
		{"wrong mode", "unsubscribe", "s3cret", true},
		{"missing", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.VerifyWebhookToken(tt.mode, tt.token, "challenge")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err: %v", err)
			}
			if !tt.wantErr && got != "challenge" {
				t.Errorf("challenge: %q", got)
			}
		})
	}
}

func TestHandleWebhookAnswersManagerOnly(t *testing.T) {
	cl := &fakeClient{}
	disp := &fakeDispatcher{reply: "Stock\nFerme Kindia: 75/80 crates left"}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{ManagerID: manager}, cl, disp, nil)

	err := svc.HandleWebhook(context.Background(), payload(
		text(manager, "stock"),
		text("224699999999", "stock"),
		models.InboundMessage{From: manager, Type: "image"},
	))
	if err != nil {
		t.Fatal(err)
	}
	if len(disp.got) != 1 || disp.got[0].Type != models.CommandStock {
		t.Errorf("dispatched: %+v", disp.got)
	}
	if len(cl.sent) != 1 || cl.sent[0].to != manager || !strings.Contains(cl.sent[0].body, "75/80") {
		t.Errorf("sent: %+v", cl.sent)
	}
}

func TestHandleWebhookReplyOnFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"bad arguments", commands.ErrInvalidArguments, "Commands:"},
		{"internal", errors.New("boom"), "request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := &fakeClient{}
			svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, cl, &fakeDispatcher{err: tt.err}, nil)
			if err := svc.HandleWebhook(context.Background(), payload(text(manager, "report"))); err != nil {
				t.Fatal(err)
			}
			if len(cl.sent) != 1 || !strings.Contains(cl.sent[0].body, tt.want) {
				t.Errorf("sent: %+v", cl.sent)
			}
		})
	}

	cl := &fakeClient{err: errors.New("token expired")}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, cl, &fakeDispatcher{reply: "ok"}, nil)
	if err := svc.HandleWebhook(context.Background(), payload(text(manager, "help"), text(manager, "stock"))); err == nil {
		t.Error("expected send error")
	}
	if len(cl.sent) != 2 {
		t.Errorf("every message should be attempted, got %d", len(cl.sent))
	}
}
