package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/chengzr01/jobscout/internal/config"
	"github.com/chengzr01/jobscout/internal/crawler"
	"github.com/chengzr01/jobscout/internal/storage"
)

// --- crawl ---

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl configured careers sites into the local catalog",
	Long: `Crawl careers listing pages and store the scraped jobs locally.

Examples:
  jobscout crawl
  jobscout crawl --start-page 1 --end-page 5
  jobscout crawl --sources https://www.google.com/about/careers/applications/jobs/results/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		startPage, _ := cmd.Flags().GetInt("start-page")
		endPage, _ := cmd.Flags().GetInt("end-page")
		sourcesFlag, _ := cmd.Flags().GetString("sources")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		sources := cfg.Crawler.SourceList()
		if sourcesFlag != "" {
			sources = nil
			for _, s := range strings.Split(sourcesFlag, ",") {
				if s = strings.TrimSpace(s); s != "" {
					sources = append(sources, s)
				}
			}
		}
		if len(sources) == 0 {
			return fmt.Errorf("no crawl sources configured")
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		opts := []crawler.Option{}
		if cfg.Crawler.RatePerSecond > 0 {
			opts = append(opts, crawler.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.Crawler.RatePerSecond), 1)))
		}
		c := crawler.New(store, opts...)

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		printStep("Crawling %d source(s), pages %d..%d", len(sources), startPage, endPage)
		total, err := c.Run(ctx, sources, startPage, endPage)
		if err != nil {
			return err
		}

		printSuccess("Stored %d jobs", total)
		return nil
	},
}

func init() {
	crawlCmd.Flags().Int("start-page", 1, "first listing page to fetch")
	crawlCmd.Flags().Int("end-page", 0, "last listing page to fetch (0 = until no next page)")
	crawlCmd.Flags().String("sources", "", "comma-separated careers listing URLs (overrides config)")
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant through a running server",
	Long: `Log in to a running jobscout server and chat with the assistant.

The assistant asks clarifying questions until it knows the company and
job title you are after, then prints the matching jobs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("user")
		password, _ := cmd.Flags().GetString("password")
		signup, _ := cmd.Flags().GetBool("signup")

		if username == "" || password == "" {
			return fmt.Errorf("--user and --password are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if signup {
			if err := client.signup(ctx, username, password); err != nil {
				return err
			}
			printSuccess("Account %s created", username)
		}

		greeting, err := client.login(ctx, username, password)
		if err != nil {
			return err
		}
		printAssistant(greeting)

		scanner := bufio.NewScanner(os.Stdin)
		for {
			printPrompt()
			if !scanner.Scan() {
				break
			}
			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}
			if input == "/quit" || input == "/exit" {
				break
			}

			turn, err := client.respond(ctx, input)
			if err != nil {
				printError("%v", err)
				continue
			}

			if turn.Frontend != nil {
				printAssistant(*turn.Frontend)
				continue
			}
			if len(turn.Backend) == 0 {
				fmt.Println("No matching jobs found.")
				continue
			}
			for i, job := range turn.Backend {
				printJob(i, job)
			}
		}

		_ = client.logout(ctx)
		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().String("user", "", "username to log in as")
	chatCmd.Flags().String("password", "", "password")
	chatCmd.Flags().Bool("signup", false, "create the account before logging in")
}

// --- reset ---

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored chat history",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL stored chat history. Use --confirm to proceed.")
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		if err := store.DeleteAllMessages(); err != nil {
			return fmt.Errorf("deleting messages: %w", err)
		}

		printSuccess("All chat history deleted")
		printWarning("A running server keeps its in-memory sessions; restart it to clear them too")
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("confirm", false, "confirm deletion")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
