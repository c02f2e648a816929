package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apresai/mimic/internal/session"
)

// runREPL is the line-based chat loop used with --plain and on non-TTY
// stdin (pipes, scripts).
func runREPL(ctx context.Context, mgr *session.Manager) error {
	subject := mgr.Session().Subject()
	fmt.Printf("\nChatting with %s. Commands: /clear, /history, /quit.\n\n", subject)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	for {
		fmt.Print(userLabelStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			mgr.ClearHistory()
			fmt.Println(dimStyle.Render("chat cleared"))
			continue
		case "/history":
			for _, t := range mgr.Session().History() {
				label := "you"
				if t.Role != "user" {
					label = subject
				}
				fmt.Printf("%s: %s\n", label, t.Content)
			}
			continue
		}

		reply := mgr.Converse(ctx, line)
		if strings.HasPrefix(reply, "Error:") {
			fmt.Println(errorStyle.Render(reply))
			continue
		}
		fmt.Printf("%s %s\n", botLabelStyle.Render(subject+">"), reply)
	}
}
