package commands

import (
	"fmt"
	"time"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/comms/tcp"
	"github.com/fedcore/corefed/pkg/ids"
	"github.com/spf13/cobra"
)

var queryTimeout time.Duration

var queryCmd = &cobra.Command{
	Use:   "query <target> <query> <host:port>",
	Short: "Send a query to a running core or broker and print the reply",
	Long: `Send a CMD_QUERY ActionMessage to a running core or broker over a
transient TCP connection and print its CMD_QUERY_REPLY payload.

Built-in queries every kernel answers: "federates", "name" (core only),
"isinit" (core only), "isconnected" (broker only).

Examples:
  corefed query core1 federates 127.0.0.1:24160
  corefed query root isconnected 127.0.0.1:24160`,
	Args: cobra.ExactArgs(3),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().DurationVar(&queryTimeout, "timeout", 5*time.Second, "How long to wait for a reply")
}

func runQuery(cmd *cobra.Command, args []string) error {
	target, queryStr, addr := args[0], args[1], args[2]

	conn, err := tcp.Dial(addr)
	if err != nil {
		return fmt.Errorf("query: dial %s: %w", addr, err)
	}
	defer conn.Close()

	req := action.New(action.CodeQuery)
	req.Name = target
	if err := req.Payload.Assign([]byte(queryStr)); err != nil {
		return fmt.Errorf("query: build request: %w", err)
	}
	if err := conn.Send(req); err != nil {
		return fmt.Errorf("query: send: %w", err)
	}

	reply, err := waitForReply(conn, queryTimeout)
	if err != nil {
		return err
	}

	fmt.Println(reply.Payload.ToStringView())
	return nil
}

// waitForReply reads ActionMessages off conn until one arrives or
// timeout elapses, returning the first CMD_QUERY_REPLY seen.
func waitForReply(conn *tcp.Conn, timeout time.Duration) (*action.Message, error) {
	if err := conn.Raw().SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("query: set deadline: %w", err)
	}

	replyCh := make(chan *action.Message, 1)
	errCh := make(chan error, 1)
	go func() {
		err := tcp.ReadLoop(conn.Raw(), ids.NullRouteID, func(_ ids.RouteID, msg *action.Message) {
			if msg.ActionCode == action.CodeQueryReply {
				select {
				case replyCh <- msg:
				default:
				}
			}
		})
		if err != nil {
			errCh <- err
		}
	}()

	select {
	case reply := <-replyCh:
		return reply, nil
	case err := <-errCh:
		return nil, fmt.Errorf("query: read reply: %w", err)
	case <-time.After(timeout):
		return nil, fmt.Errorf("query: timed out waiting for reply from %s", conn.Raw().RemoteAddr())
	}
}
