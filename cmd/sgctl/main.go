// sgctl is the command-line companion to the chat client: account signup and
// the social operations that don't need a live screen (search, follow,
// feed, posts, notifications).
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"sociogo/client/internal/api"
	"sociogo/client/internal/config"
	"sociogo/client/internal/identity"
	"sociogo/client/internal/models"
	"sociogo/client/internal/notify"
)

func usage() {
	fmt.Println(`Usage: sgctl <command> [args]

Commands:
  signup                          register a new account (interactive)
  whoami                          show the signed-in member's profile
  search <username>               search members by username
  follow <member_id>              follow (or request to follow) a member
  unfollow <member_id>            unfollow a member
  followers <member_id>           list a member's followers
  followings <member_id>          list who a member follows
  follow-accept <member_id> <notification_id>
                                  accept a pending follow request
  follow-reject <member_id> <notification_id>
                                  decline a pending follow request
  feed [page]                     show a page of the post feed
  posts <member_id>               show a member's posts
  show <post_id>                  show one post with its comments
  chat <member_id>                open (or find) the 1:1 chat room with a member
  post <title> <content>          create a text post
  like <post_id>                  toggle a like on a post
  comment <post_id> <content>     comment on a post
  notifications                   list notifications, newest first
  notification-read <id>          mark one notification read
  notification-delete <id>        delete one notification`)
	os.Exit(1)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("sgctl: skipping .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("sgctl: %v", err)
	}
	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)

	if len(os.Args) < 2 {
		usage()
	}
	command := os.Args[1]
	args := os.Args[2:]
	ctx := context.Background()

	// Signup is the only command that works without a session.
	if command == "signup" {
		if err := signup(ctx, client); err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		return
	}

	id, err := signIn(ctx, client, identity.Store{Dir: cfg.ConfigDir})
	if err != nil {
		log.Fatalf("sgctl: %v", err)
	}

	switch command {
	case "whoami":
		detail, err := client.Member(ctx, id.MemberID)
		if err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		fmt.Printf("%s (@%s)  followers %d  following %d  posts %d\n",
			detail.RealName, detail.Username, detail.FollowerCount, detail.FollowingCount, detail.PostCount)

	case "search":
		if len(args) != 1 {
			usage()
		}
		page, err := client.SearchMembers(ctx, args[0])
		if err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		printMembers(page.Content)

	case "follow":
		memberID := parseID(args)
		if err := client.FollowMember(ctx, memberID); err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		fmt.Printf("follow requested for member %d\n", memberID)

	case "unfollow":
		memberID := parseID(args)
		if err := client.UnfollowMember(ctx, memberID); err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		fmt.Printf("unfollowed member %d\n", memberID)

	case "followers", "followings":
		memberID := parseID(args)
		var page *models.MemberPage
		if command == "followers" {
			page, err = client.Followers(ctx, memberID, 0, config.RoomPageSize)
		} else {
			page, err = client.Followings(ctx, memberID, 0, config.RoomPageSize)
		}
		if err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		printMembers(page.Content)

	case "follow-accept", "follow-reject":
		if len(args) != 2 {
			usage()
		}
		memberID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			usage()
		}
		notificationID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			usage()
		}
		// The notification carries the requesting member; the follow edge id
		// has to be resolved before it can be acted on.
		follow, err := client.FollowToward(ctx, memberID)
		if err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		if command == "follow-accept" {
			err = client.AcceptFollow(ctx, follow.FollowID, notificationID)
		} else {
			err = client.RejectFollow(ctx, follow.FollowID, notificationID)
		}
		if err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		fmt.Println("done")

	case "feed":
		pageNum := 0
		if len(args) == 1 {
			pageNum, err = strconv.Atoi(args[0])
			if err != nil {
				usage()
			}
		}
		page, err := client.Feed(ctx, pageNum, config.RoomPageSize)
		if err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		for _, p := range page.Content {
			fmt.Printf("#%d  %s (@%s)  %s\n    %s  [likes %d, comments %d]\n",
				p.PostID, p.Member.RealName, p.Member.Username,
				p.CreatedAt.Local().Format("2006-01-02 15:04"),
				p.Title, p.LikeCount, p.CommentCount)
		}

	case "posts":
		memberID := parseID(args)
		page, err := client.MemberPosts(ctx, memberID, 0, config.RoomPageSize)
		if err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		for _, p := range page.Content {
			fmt.Printf("#%d  %s  %s  [likes %d, comments %d]\n",
				p.PostID, p.CreatedAt.Local().Format("2006-01-02 15:04"),
				p.Title, p.LikeCount, p.CommentCount)
		}

	case "show":
		postID := parseID(args)
		p, err := client.Post(ctx, postID)
		if err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		fmt.Printf("#%d  %s (@%s)  %s\n%s\n\n%s\n",
			p.PostID, p.Member.RealName, p.Member.Username,
			p.CreatedAt.Local().Format("2006-01-02 15:04"), p.Title, p.Content)
		for _, c := range p.Comments {
			fmt.Printf("  %s (@%s): %s\n", c.Member.RealName, c.Member.Username, c.Content)
		}

	case "chat":
		memberID := parseID(args)
		room, err := client.CreateChatRoom(ctx, memberID)
		if err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		fmt.Printf("chat room %d is ready, open it in the main client\n", room.ChatRoomID)

	case "post":
		if len(args) != 2 {
			usage()
		}
		resp, err := client.CreatePost(ctx, api.CreatePostRequest{Title: args[0], Content: args[1]})
		if err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		fmt.Printf("created post %d\n", resp.PostID)

	case "like":
		postID := parseID(args)
		if err := client.LikePost(ctx, postID); err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		fmt.Printf("toggled like on post %d\n", postID)

	case "comment":
		if len(args) != 2 {
			usage()
		}
		postID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			usage()
		}
		c, err := client.CommentOnPost(ctx, postID, args[1])
		if err != nil {
			log.Fatalf("sgctl: %v", err)
		}
		fmt.Printf("comment %d added\n", c.CommentID)

	case "notifications":
		if err := listNotifications(ctx, client); err != nil {
			log.Fatalf("sgctl: %v", err)
		}

	case "notification-read":
		if err := client.ReadNotification(ctx, parseID(args)); err != nil {
			log.Fatalf("sgctl: %v", err)
		}

	case "notification-delete":
		if err := client.DeleteNotification(ctx, parseID(args)); err != nil {
			log.Fatalf("sgctl: %v", err)
		}

	default:
		usage()
	}
}

func parseID(args []string) int64 {
	if len(args) != 1 {
		usage()
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Println("invalid id, expected an integer")
		os.Exit(1)
	}
	return id
}

func printMembers(members []models.Member) {
	if len(members) == 0 {
		fmt.Println("no members found")
		return
	}
	for _, m := range members {
		fmt.Printf("%d  %s (@%s)\n", m.MemberID, m.RealName, m.Username)
	}
}

// listNotifications drains every page through the notify store so the output
// is deduplicated and newest first even when pages overlap.
func listNotifications(ctx context.Context, client *api.Client) error {
	store := notify.NewStore()
	for store.HasMore() {
		page, err := client.Notifications(ctx, store.NextPage(), config.NotificationPageSize)
		if err != nil {
			return err
		}
		store.Append(page)
	}

	all := store.All()
	if len(all) == 0 {
		fmt.Println("no notifications")
		return nil
	}
	for _, n := range all {
		read := " "
		if n.IsRead {
			read = "✓"
		}
		fmt.Printf("%s %d  [%s]  %s\n", read, n.NotificationID, n.Type, n.Message)
	}
	return nil
}

// signup walks email verification and registration, matching the web
// client's join flow.
func signup(ctx context.Context, client *api.Client) error {
	reader := bufio.NewReader(os.Stdin)

	email, err := prompt(reader, "email")
	if err != nil {
		return err
	}
	if err := client.RequestEmailCode(ctx, email); err != nil {
		return fmt.Errorf("requesting verification code: %w", err)
	}
	fmt.Println("a verification code was sent to", email)

	code, err := prompt(reader, "code")
	if err != nil {
		return err
	}
	if err := client.VerifyEmailCode(ctx, email, code); err != nil {
		return fmt.Errorf("verifying code: %w", err)
	}

	username, err := prompt(reader, "username")
	if err != nil {
		return err
	}
	realName, err := prompt(reader, "real name")
	if err != nil {
		return err
	}
	password, err := prompt(reader, "password")
	if err != nil {
		return err
	}

	member, err := client.Join(ctx, api.JoinRequest{
		Username: username,
		Password: password,
		RealName: realName,
		Email:    email,
	})
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}
	fmt.Printf("welcome, %s (@%s)\n", member.RealName, member.Username)
	return nil
}

// signIn authenticates with the stored username (prompting for what is
// missing) and returns the viewer identity.
func signIn(ctx context.Context, client *api.Client, store identity.Store) (*identity.Identity, error) {
	reader := bufio.NewReader(os.Stdin)

	username := ""
	if saved, err := store.Load(); err == nil {
		username = saved.Username
	}
	if username == "" {
		var err error
		username, err = prompt(reader, "username")
		if err != nil {
			return nil, err
		}
	}
	password, err := prompt(reader, "password")
	if err != nil {
		return nil, err
	}

	resp, err := client.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return &identity.Identity{
		MemberID:        resp.MemberID,
		Username:        resp.Username,
		RealName:        resp.RealName,
		ProfileImageURL: resp.ProfileImageURL,
	}, nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
