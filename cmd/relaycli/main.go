// Command relaycli is a terminal client for the relay. It plays either side
// of the conversation: as a regular user it sends messages and polls for the
// admin's responses; as the admin it polls the pending queue, replies, and
// marks messages as handled.
//
// Usage:
//
//	relaycli -server http://localhost:3002 -name alice
//
// Interactive commands:
//
//	<text>                    send a message (user) or broadcast a reply (admin)
//	/to <userId> <text>       admin: reply to one user
//	/file <path> [text]       send a message with an attachment
//	/done <messageId>         admin: mark a pending message as responded
//	/history                  print the local transcript
//	/clear                    clear the local transcript
//	/quit                     exit
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-relay-backend/internal/client"
	"github.com/tbourn/go-relay-backend/internal/domain"
	"github.com/tbourn/go-relay-backend/internal/sysutil"
	"github.com/tbourn/go-relay-backend/internal/texts"
)

// pr renders canned strings in the deployment's default locale.
var pr = texts.Printer(os.Getenv("RELAY_LANG"))

func main() {
	var (
		server   = flag.String("server", "http://localhost:3002", "relay server base URL")
		name     = flag.String("name", "", "username to authenticate as")
		dataDir  = flag.String("data", defaultDataDir(), "directory for local state and history")
		logLevel = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()
	sysutil.SetupLogging(*logLevel, true)

	if err := run(*server, *name, *dataDir); err != nil {
		log.Fatal().Err(err).Msg("relaycli failed")
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".relaycli"
	}
	return filepath.Join(home, ".relaycli")
}

func run(server, name, dataDir string) error {
	states := &client.StateStore{Path: filepath.Join(dataDir, "state.json")}
	st, found, err := states.Load()
	if err != nil {
		return err
	}
	if !found {
		st.UserID = client.NewUserID()
	}
	if name != "" {
		st.Username = name
	}
	if st.Username == "" {
		return fmt.Errorf("no saved identity; pass -name")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := client.NewAPI(server)
	auth, err := api.Auth(ctx, st.Username)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	st.Username = auth.Username
	st.IsAdmin = auth.IsAdmin

	hist := client.NewHistory()
	histPath := filepath.Join(dataDir, "history-"+st.UserID+".json")
	if err := hist.Load(histPath); err != nil {
		return err
	}
	if !st.HasVisited && !st.IsAdmin {
		hist.Bootstrap(pr.Sprintf(texts.Welcome))
		st.HasVisited = true
	}
	if err := states.Save(st); err != nil {
		return err
	}

	printTranscript(hist)

	poller := &client.Poller{
		API: api,
		Log: log.With().Str("component", "poller").Logger(),
		OnResponses: func(int) {
			printTranscript(hist)
		},
		OnPending: func(msgs []domain.PendingMessage) {
			for _, m := range msgs {
				fmt.Printf("[pending %d] %s (%s): %s", m.ID, m.Username, m.UserID, m.Text)
				for _, a := range m.Attachments {
					fmt.Printf(" [file %s]", a.OriginalName)
				}
				fmt.Println()
			}
		},
	}
	if st.IsAdmin {
		fmt.Printf("signed in as admin %q\n", st.Username)
		go poller.RunAdmin(ctx)
	} else {
		fmt.Printf("signed in as %q (%s)\n", st.Username, st.UserID)
		go poller.RunUser(ctx, st.UserID, hist)
	}

	defer func() {
		if err := hist.Save(histPath); err != nil {
			log.Warn().Err(err).Msg("saving history")
		}
	}()

	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 64*1024), 64*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if done := dispatch(ctx, line, api, hist, st); done {
			return nil
		}
	}
	return sc.Err()
}

// dispatch handles one input line. Returns true when the client should exit.
func dispatch(ctx context.Context, line string, api *client.API, hist *client.History, st client.State) bool {
	switch {
	case line == "/quit":
		return true

	case line == "/history":
		printTranscript(hist)

	case line == "/clear":
		hist.Clear()
		if err := api.ClearResponses(ctx, st.UserID); err != nil {
			log.Warn().Err(err).Msg("clear-responses")
		}
		fmt.Println("history cleared")

	case strings.HasPrefix(line, "/done "):
		id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "/done ")), 10, 64)
		if err != nil {
			fmt.Println("usage: /done <messageId>")
			return false
		}
		if err := api.MarkResponded(ctx, id); err != nil {
			fmt.Println("mark-responded failed:", err)
			return false
		}
		fmt.Println("marked as responded")

	case strings.HasPrefix(line, "/to "):
		rest := strings.TrimPrefix(line, "/to ")
		parts := strings.SplitN(rest, " ", 2)
		if len(parts) != 2 {
			fmt.Println("usage: /to <userId> <text>")
			return false
		}
		send(ctx, api, hist, st, parts[1], parts[0], nil)

	case strings.HasPrefix(line, "/file "):
		rest := strings.TrimPrefix(line, "/file ")
		parts := strings.SplitN(rest, " ", 2)
		text := ""
		if len(parts) == 2 {
			text = parts[1]
		}
		f, err := os.Open(parts[0])
		if err != nil {
			fmt.Println("cannot open file:", err)
			return false
		}
		defer f.Close()
		uploads := []client.FileUpload{{Name: parts[0], Reader: f}}
		send(ctx, api, hist, st, text, domain.TargetAll, uploads)

	default:
		send(ctx, api, hist, st, line, domain.TargetAll, nil)
	}
	return false
}

// send submits a message with an optimistic local echo, rolling the echo back
// if the server rejects it.
func send(ctx context.Context, api *client.API, hist *client.History, st client.State, text, target string, files []client.FileUpload) {
	role := domain.EntryUser
	if st.IsAdmin {
		role = domain.EntryAdmin
	}
	token := -1
	if text != "" && !st.IsAdmin {
		token = hist.AppendLocal(domain.ChatHistoryEntry{Role: role, Text: text})
	}

	var (
		res client.SendResult
		err error
	)
	if len(files) > 0 {
		res, err = api.SendMessageWithFiles(ctx, st.UserID, st.Username, text, target, st.IsAdmin, files)
	} else {
		res, err = api.SendMessage(ctx, st.UserID, st.Username, text, target)
	}
	if err != nil {
		if token >= 0 {
			hist.Rollback(token)
		}
		fmt.Println(pr.Sprintf(texts.SendFailed))
		log.Debug().Err(err).Msg("send failed")
		return
	}
	if st.IsAdmin {
		fmt.Println(pr.Sprintf(texts.ReplySent))
		return
	}
	if res.Message != "" {
		fmt.Println(res.Message)
	}
}

func printTranscript(hist *client.History) {
	fmt.Println("----")
	for _, e := range hist.Entries() {
		label := map[string]string{
			domain.EntryUser:  "you",
			domain.EntryAdmin: "admin",
			domain.EntryBot:   "bot",
		}[e.Role]
		if e.Attachment != nil {
			fmt.Printf("%s: [file %s]\n", label, e.Attachment.OriginalName)
			continue
		}
		fmt.Printf("%s: %s\n", label, e.Text)
	}
	fmt.Println("----")
}
