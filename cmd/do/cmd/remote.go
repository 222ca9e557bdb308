package cmd

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

const defaultServiceName = "amenitymap"

// RemoteCmd manages the deployed server over SSH.
func RemoteCmd() *cobra.Command {
	var (
		host    string
		port    string
		keyPath string
		service string
	)

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Operate the deployed amenitymap service over SSH",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if host == "" {
				return fmt.Errorf("--host is required or set SSH_HOST env")
			}
			service = unitName(service)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&host, "host", os.Getenv("SSH_HOST"), "SSH host (user@host)")
	cmd.PersistentFlags().StringVar(&port, "port", "22", "SSH port")
	cmd.PersistentFlags().StringVar(&keyPath, "key", "", "SSH private key path (default: ssh-agent, then ~/.ssh)")
	cmd.PersistentFlags().StringVar(&service, "service", defaultServiceName, "systemd unit running the server")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the systemd status of the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return remoteRun(host, port, keyPath,
				"systemctl status --no-pager --lines=0 "+service)
		},
	}

	var lines int
	var since string
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent server logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := "journalctl --no-pager -o cat -u " + service + " -n " + strconv.Itoa(lines)
			if since != "" {
				c += " --since " + shellQuote(since)
			}
			return remoteRun(host, port, keyPath, c)
		},
	}
	logsCmd.Flags().IntVarP(&lines, "lines", "n", 100, "number of lines")
	logsCmd.Flags().StringVar(&since, "since", "", "only show entries newer than this (journalctl syntax)")

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return remoteRun(host, port, keyPath,
				"systemctl restart "+service+" && systemctl is-active "+service)
		},
	}

	var (
		workdir   string
		olderThan time.Duration
		dryRun    bool
	)
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the orphan image sweep on the server",
		Long: `Runs "do sweep" in the server's working directory, so it picks up the
production .env (database and bucket credentials).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := "cd " + shellQuote(workdir) + " && ./bin/do sweep"
			if olderThan > 0 {
				c += " --older-than " + olderThan.String()
			}
			if dryRun {
				c += " --dry-run"
			}
			return remoteRun(host, port, keyPath, c)
		},
	}
	sweepCmd.Flags().StringVar(&workdir, "workdir", "/opt/amenitymap", "server working directory")
	sweepCmd.Flags().DurationVar(&olderThan, "older-than", 0, "only sweep objects older than this (default: server config)")
	sweepCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list orphans without deleting them")

	cmd.AddCommand(statusCmd, logsCmd, restartCmd, sweepCmd)
	return cmd
}

func unitName(service string) string {
	if !strings.HasSuffix(service, ".service") {
		return service + ".service"
	}
	return service
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func remoteRun(host, port, keyPath, command string) error {
	client, err := sshConnect(host, port, keyPath)
	if err != nil {
		return fmt.Errorf("ssh connect: %w", err)
	}
	defer client.Close()

	output, err := runSSHCommand(client, command)
	fmt.Print(output)
	if err != nil {
		return fmt.Errorf("run %q: %w", command, err)
	}
	return nil
}

func runSSHCommand(client *ssh.Client, cmd string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	output, err := session.CombinedOutput(cmd)
	return string(output), err
}

func sshConnect(host, port, keyPath string) (*ssh.Client, error) {
	authMethods, err := authMethods(keyPath)
	if err != nil {
		return nil, err
	}

	user, hostname := splitHost(host)
	config := &ssh.ClientConfig{
		User:            user,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         15 * time.Second,
	}

	addr := net.JoinHostPort(hostname, port)
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return client, nil
}

func authMethods(keyPath string) ([]ssh.AuthMethod, error) {
	// An explicit key wins over the agent
	if keyPath == "" {
		if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
			conn, err := net.Dial("unix", sock)
			if err == nil {
				agentClient := agent.NewClient(conn)
				keys, err := agentClient.List()
				if err == nil && len(keys) > 0 {
					return []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)}, nil
				}
				conn.Close()

				if err := runSSHAdd(); err != nil {
					return nil, fmt.Errorf("ssh-add failed: %w", err)
				}

				conn, err = net.Dial("unix", sock)
				if err == nil {
					agentClient = agent.NewClient(conn)
					return []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)}, nil
				}
			}
		}
	}

	var key []byte
	var err error
	if keyPath != "" {
		key, err = os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("read key %s: %w", keyPath, err)
		}
	} else {
		key, err = findSSHKey()
		if err != nil {
			return nil, err
		}
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse key (use ssh-add to load passphrase-protected keys): %w", err)
	}

	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

func runSSHAdd() error {
	fmt.Println("No keys in ssh-agent, running ssh-add...")
	cmd := exec.Command("ssh-add")
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func findSSHKey() ([]byte, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}

	names := []string{"id_ed25519", "id_rsa", "id_ecdsa"}
	for _, name := range names {
		key, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err == nil {
			return key, nil
		}
	}

	return nil, fmt.Errorf("no SSH key found in ~/.ssh (tried: %v)", names)
}

// splitHost splits user@host, defaulting the user to root.
func splitHost(host string) (user, hostname string) {
	if u, h, ok := strings.Cut(host, "@"); ok {
		return u, h
	}
	return "root", host
}
