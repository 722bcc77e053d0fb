package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"budget/internal/auth"

	"github.com/spf13/cobra"
)

var (
	hashUser   string
	hashSHA256 bool
	hashCost   int
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Hash a password for AUTH_USERS",
	Long: `Prints a bcrypt (default) or hex SHA-256 hash of the password. Without
an argument the password is read from the first line of stdin. With --user
the output is a ready AUTH_USERS entry, name:hash.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashPassword,
}

func init() {
	hashPasswordCmd.Flags().StringVarP(&hashUser, "user", "u", "", "Prefix the hash with name: for AUTH_USERS")
	hashPasswordCmd.Flags().BoolVar(&hashSHA256, "sha256", false, "Use an unsalted SHA-256 digest instead of bcrypt")
	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", 0, "bcrypt cost (default 10)")
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password from stdin: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}
	if strings.ContainsAny(hashUser, ":,") {
		return fmt.Errorf("user name %q cannot contain ':' or ','", hashUser)
	}

	var hash string
	if hashSHA256 {
		hash = auth.HashSHA256(password)
	} else {
		var err error
		if hash, err = auth.HashBcrypt(password, hashCost); err != nil {
			return err
		}
	}

	if hashUser != "" {
		hash = hashUser + ":" + hash
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
