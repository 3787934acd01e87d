package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"socknet/pkg/socket"
)

// Monitor runs an interactive command loop against a single connection.
// Commands:
//
//	send <text>     write text plus a trailing newline
//	sendraw <text>  write text with the newline suppressed
//	read <n>        unreliable read of up to n bytes
//	readr <n>       reliable read of exactly n bytes
//	readline        read through the next newline
//	status          print connection details
//	quit            leave the loop
//
// Command mistakes are printed and the loop continues; a transport failure
// ends the session.
func Monitor(conn *socket.Conn) {
	reader := bufio.NewReader(os.Stdin)
	for {
		input, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		input = strings.TrimSpace(input)
		if input == "quit" {
			return
		} else if input == "status" {
			fmt.Printf("\nFlow     Family  Listen          Remote          Port   Valid\n")
			fmt.Printf("%s  %s    %-15s %-15s %-6d %t\n",
				conn.Flow(), conn.Family(), conn.Listen(), conn.Remote(), conn.Port(), conn.Valid())
		} else if strings.HasPrefix(input, "send ") {
			if err := conn.Write([]byte(input[5:]), true); err != nil {
				fmt.Println(err)
			}
		} else if strings.HasPrefix(input, "sendraw ") {
			if err := conn.Write([]byte(input[8:]), false); err != nil {
				fmt.Println(err)
			}
		} else if strings.HasPrefix(input, "read ") || strings.HasPrefix(input, "readr ") {
			reliable := strings.HasPrefix(input, "readr ")
			parts := strings.Fields(input)
			if len(parts) != 2 {
				fmt.Println("follow format: read <n> or readr <n>")
				continue
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil || n < 1 {
				fmt.Println("invalid byte count")
				continue
			}
			data, err := conn.Read(reliable, n)
			if errors.Is(err, socket.ErrUnexpected) {
				fmt.Println(err)
				return
			} else if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("%d bytes: %q\n", len(data), data)
		} else if input == "readline" {
			data, err := conn.ReadDelim('\n')
			if errors.Is(err, socket.ErrUnexpected) {
				fmt.Println(err)
				return
			} else if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("%q\n", data)
		} else if input != "" {
			fmt.Println("commands: send <text> | sendraw <text> | read <n> | readr <n> | readline | status | quit")
		}
	}
}
