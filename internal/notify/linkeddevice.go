package notify

import (
	"context"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.uber.org/zap"
)

// LinkedDevice sends messages as a WhatsApp linked device. The session is
// persisted in a SQLite database under the data directory.
type LinkedDevice struct {
	client *whatsmeow.Client
	logger *zap.Logger
}

func NewLinkedDevice(ctx context.Context, dataDir string, logger *zap.Logger) (*LinkedDevice, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", dataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return &LinkedDevice{
		client: whatsmeow.NewClient(device, nil),
		logger: logger,
	}, nil
}

// Connect opens the session. An unpaired device logs pairing codes until a
// phone scans one; the call returns once the socket is up.
func (d *LinkedDevice) Connect(ctx context.Context) error {
	if d.client.Store.ID != nil {
		if err := d.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	}

	qrChan, err := d.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pairing channel: %w", err)
	}
	if err := d.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	go func() {
		for evt := range qrChan {
			if evt.Event == "code" {
				d.logger.Info("WhatsApp pairing code, scan from Linked Devices", zap.String("code", evt.Code))
				continue
			}
			d.logger.Info("WhatsApp pairing event", zap.String("event", evt.Event))
		}
	}()
	return nil
}

func (d *LinkedDevice) Disconnect() {
	d.client.Disconnect()
}

// Configured reports whether the device is paired and connected.
func (d *LinkedDevice) Configured() bool {
	return d.client.Store.ID != nil && d.client.IsConnected()
}

func (d *LinkedDevice) SendText(ctx context.Context, phone, body string) error {
	resp, err := d.client.IsOnWhatsApp(ctx, []string{phone})
	if err != nil {
		return fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("number %s is not registered on WhatsApp", phone)
	}

	if _, err := d.client.SendMessage(ctx, resp[0].JID, &waE2E.Message{Conversation: &body}); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", phone, err)
	}
	return nil
}
