package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"sociogo/client/internal/api"
	"sociogo/client/internal/bridge"
	"sociogo/client/internal/config"
	"sociogo/client/internal/identity"
	"sociogo/client/internal/session"
	"sociogo/client/internal/tui"
)

func main() {
	// Optional .env in the working directory, same keys as the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("main: skipping .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: %v", err)
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	store := identity.Store{Dir: cfg.ConfigDir}

	if len(os.Args) > 1 && os.Args[1] == "logout" {
		if err := client.Logout(context.Background()); err != nil {
			log.Printf("main: server logout failed: %v", err)
		}
		if err := store.Clear(); err != nil {
			log.Fatalf("main: %v", err)
		}
		fmt.Println("logged out")
		return
	}

	id, err := login(client, store)
	if err != nil {
		log.Fatalf("main: %v", err)
	}

	viewer := session.Viewer{
		MemberID: id.MemberID,
		Username: id.Username,
		RealName: id.RealName,
	}

	dialer := bridge.Dialer{URL: cfg.BridgeURL}
	dial := func(ctx context.Context, onError func(error)) (session.LiveConn, error) {
		conn, err := dialer.Dial(ctx, onError)
		if err != nil {
			return nil, err
		}
		return liveConn{conn}, nil
	}

	sess := session.New(client, dial, viewer)
	defer sess.Stop()

	app := tui.NewApp(client, sess, viewer)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		log.Fatalf("main: %v", err)
	}
}

// liveConn adapts the bridge connection to the session's transport
// interface.
type liveConn struct {
	*bridge.Conn
}

func (l liveConn) Subscribe(destination string, h func(body []byte)) error {
	return l.Conn.Subscribe(destination, bridge.Handler(h))
}

// login authenticates against the backend. The session rides on a cookie, so
// a fresh login happens every run; the stored identity prefills the username
// and keeps the viewer's display data between runs.
func login(client *api.Client, store identity.Store) (*identity.Identity, error) {
	saved, err := store.Load()
	if err != nil && !errors.Is(err, identity.ErrNotLoggedIn) {
		return nil, err
	}

	reader := bufio.NewReader(os.Stdin)

	defaultUser := ""
	if saved != nil {
		defaultUser = saved.Username
		if exp, err := saved.TokenExpiry(); err == nil && !exp.IsZero() && exp.Before(time.Now()) {
			fmt.Println("previous session expired, sign in again")
		}
	}

	username, err := prompt(reader, "username", defaultUser)
	if err != nil {
		return nil, err
	}
	password, err := prompt(reader, "password", "")
	if err != nil {
		return nil, err
	}

	resp, err := client.Login(context.Background(), api.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	id := &identity.Identity{
		MemberID:        resp.MemberID,
		Username:        resp.Username,
		RealName:        resp.RealName,
		ProfileImageURL: resp.ProfileImageURL,
	}
	if saved != nil && saved.Username == id.Username {
		id.Token = saved.Token
	}
	if err := store.Save(id); err != nil {
		log.Printf("main: could not persist identity: %v", err)
	}
	return id, nil
}

func prompt(reader *bufio.Reader, label, def string) (string, error) {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}
