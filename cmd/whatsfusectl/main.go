package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/matheus3301/whatsfuse"
	"github.com/matheus3301/whatsfuse/core"
)

func main() {
	configFlag := flag.String("config", "", "path to a TOML config file (default: environment variables)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	limitFlag := flag.Int("limit", 0, "limit for list commands")
	replyFlag := flag.String("reply-to", "", "message ID to reply to")
	noPreviewFlag := flag.Bool("no-preview", false, "disable link preview on send")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fatal(err)
	}

	client, err := whatsfuse.New(cfg)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout+5*time.Second)
	defer cancel()

	switch args[0] {
	case "send":
		if len(args) < 3 {
			usageExit("usage: whatsfusectl send <chat-id> <text>")
		}
		cmdSend(ctx, client, args[1], args[2], *replyFlag, *noPreviewFlag, *jsonFlag)
	case "chats":
		cmdChats(ctx, client, *limitFlag, *jsonFlag)
	case "history":
		if len(args) < 2 {
			usageExit("usage: whatsfusectl history <chat-id>")
		}
		cmdHistory(ctx, client, args[1], *limitFlag, *jsonFlag)
	case "contacts":
		cmdContacts(ctx, client, *jsonFlag)
	case "check":
		if len(args) < 2 {
			usageExit("usage: whatsfusectl check <phone>")
		}
		cmdCheck(ctx, client, args[1], *jsonFlag)
	case "read":
		if len(args) < 2 {
			usageExit("usage: whatsfusectl read <chat-id> [message-id]")
		}
		messageID := ""
		if len(args) >= 3 {
			messageID = args[2]
		}
		cmdRead(ctx, client, args[1], messageID)
	case "sessions":
		if len(args) < 2 {
			usageExit("usage: whatsfusectl sessions <list|create <name>>")
		}
		switch args[1] {
		case "list":
			cmdSessionsList(ctx, client, *jsonFlag)
		case "create":
			if len(args) < 3 {
				usageExit("usage: whatsfusectl sessions create <name>")
			}
			cmdSessionsCreate(ctx, client, args[2], *jsonFlag)
		default:
			usageExit("usage: whatsfusectl sessions <list|create <name>>")
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func loadConfig(path string) (*core.Config, error) {
	if path != "" {
		return core.LoadFile(path)
	}
	return core.FromEnv(), nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: whatsfusectl [--config <path>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  send <chat-id> <text>      Send a text message")
	fmt.Fprintln(os.Stderr, "  chats                      List chats")
	fmt.Fprintln(os.Stderr, "  history <chat-id>          Show chat history")
	fmt.Fprintln(os.Stderr, "  contacts                   List contacts")
	fmt.Fprintln(os.Stderr, "  check <phone>              Check if a number is on WhatsApp")
	fmt.Fprintln(os.Stderr, "  read <chat-id> [msg-id]    Mark chat or message as read")
	fmt.Fprintln(os.Stderr, "  sessions list              List sessions (WAHA)")
	fmt.Fprintln(os.Stderr, "  sessions create <name>     Create a session and show its QR (WAHA)")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "flags:")
	flag.PrintDefaults()
}

func usageExit(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func cmdSend(ctx context.Context, c *whatsfuse.Client, chatID, text, replyTo string, noPreview, jsonOut bool) {
	msg, err := c.SendText(ctx, chatID, text, &whatsfuse.TextOptions{
		ReplyTo:            replyTo,
		DisableLinkPreview: noPreview,
	})
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(msg)
		return
	}
	fmt.Printf("sent %s to %s\n", msg.ID, msg.ChatID)
}

func cmdChats(ctx context.Context, c *whatsfuse.Client, limit int, jsonOut bool) {
	chats, err := c.Chats(ctx, limit)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(chats)
		return
	}
	for _, chat := range chats {
		marker := " "
		if chat.IsGroup {
			marker = "G"
		}
		fmt.Printf("%s %-40s %s\n", marker, chat.ID, chat.Name)
	}
}

func cmdHistory(ctx context.Context, c *whatsfuse.Client, chatID string, limit int, jsonOut bool) {
	messages, err := c.ChatHistory(ctx, chatID, limit)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(messages)
		return
	}
	for _, msg := range messages {
		dir := "<-"
		if msg.FromMe {
			dir = "->"
		}
		body := msg.Text
		if body == "" {
			body = fmt.Sprintf("[%s]", msg.Kind)
		}
		fmt.Printf("%s %s %s\n", msg.Timestamp.Format(time.RFC3339), dir, body)
	}
}

func cmdContacts(ctx context.Context, c *whatsfuse.Client, jsonOut bool) {
	contacts, err := c.Contacts(ctx)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(contacts)
		return
	}
	for _, contact := range contacts {
		fmt.Printf("%-40s %-20s %s\n", contact.ID, contact.Phone, contact.Name)
	}
}

func cmdCheck(ctx context.Context, c *whatsfuse.Client, phone string, jsonOut bool) {
	registered, err := c.IsRegistered(ctx, phone)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(map[string]bool{"registered": registered})
		return
	}
	if registered {
		fmt.Printf("%s is on WhatsApp\n", phone)
	} else {
		fmt.Printf("%s is not on WhatsApp\n", phone)
	}
}

func cmdRead(ctx context.Context, c *whatsfuse.Client, chatID, messageID string) {
	if err := c.MarkRead(ctx, chatID, messageID); err != nil {
		fatal(err)
	}
	fmt.Println("ok")
}

func cmdSessionsList(ctx context.Context, c *whatsfuse.Client, jsonOut bool) {
	sessions, err := c.Sessions(ctx)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(sessions)
		return
	}
	for _, s := range sessions {
		fmt.Printf("%-20s %-14s authenticated=%v\n", s.Name, s.State, s.Authenticated)
	}
}

func cmdSessionsCreate(ctx context.Context, c *whatsfuse.Client, name string, jsonOut bool) {
	session, err := c.CreateSession(ctx, name)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(session)
		return
	}
	fmt.Printf("session %s: %s\n", session.Name, session.State)
	if session.QRCode != "" {
		qr, err := qrcode.New(session.QRCode, qrcode.Medium)
		if err != nil {
			fatal(fmt.Errorf("render QR: %w", err))
		}
		fmt.Print(qr.ToSmallString(false))
		fmt.Println("scan the QR code with WhatsApp to pair")
	}
}
