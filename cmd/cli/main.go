package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ChhabraSanyam/Acrylican-sub000/internal/config"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/connections"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/models"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/platform"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/publisher"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/queue"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/resilience"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/schedule"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/storage"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/storage/sqlite"
	"github.com/ChhabraSanyam/Acrylican-sub000/pkg/logger"
	"github.com/ChhabraSanyam/Acrylican-sub000/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "acrylican",
		Short: "Multi-platform publishing for artisan sellers",
		Long: `Publishes content to social networks and marketplaces on a schedule,
tracking per-platform outcomes and retrying transient failures automatically.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(postCmd())
	rootCmd.AddCommand(publishCmd())
	rootCmd.AddCommand(queueCmd())
	rootCmd.AddCommand(connectionCmd())
	rootCmd.AddCommand(adviseCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	// Initialize storage
	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// buildService wires the dispatch pipeline for one-shot CLI commands
func buildService() (*publisher.Service, *queue.Processor) {
	registry := platform.NewRegistry()
	for _, name := range cfg.Platforms.Enabled {
		registry.Register(platform.NewSandbox(name))
	}

	classifier := resilience.NewClassifier()
	breakers := resilience.NewBreakerSet(resilience.BreakerConfig{
		FailureThreshold: cfg.Resilience.FailureThreshold,
		Cooldown:         cfg.Resilience.Cooldown,
	}, log)
	retry := resilience.NewExecutor(classifier, breakers, log)
	limiter := ratelimit.NewPlatformLimiter(
		cfg.Platforms.Enabled,
		cfg.RateLimit.RequestsPerMinute,
		cfg.RateLimit.Burst,
	)

	connStore := connections.NewStore(repo)
	dispatcher := publisher.NewDispatcher(registry, connStore, retry, classifier, limiter, log)
	service := publisher.NewService(repo, dispatcher, cfg.Queue.MaxRetries, log)
	processor := queue.NewProcessor(repo, dispatcher, queue.Options{
		BatchSize:   cfg.Queue.BatchSize,
		BackoffBase: cfg.Queue.BackoffBase,
		StaleAfter:  cfg.Queue.StaleAfter,
	}, log)

	return service, processor
}

// ============ POST COMMANDS ============

func postCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post management commands",
	}

	cmd.AddCommand(postCreateCmd())
	cmd.AddCommand(postListCmd())
	cmd.AddCommand(postShowCmd())
	cmd.AddCommand(postDeleteCmd())
	return cmd
}

func postCreateCmd() *cobra.Command {
	var (
		userID      string
		title       string
		description string
		platforms   []string
		mediaRefs   []string
		tags        []string
		priority    int
		scheduleAt  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new post",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			service, _ := buildService()

			input := publisher.CreatePostInput{
				Title:       title,
				Description: description,
				MediaRefs:   mediaRefs,
				Tags:        tags,
				Platforms:   platforms,
				Priority:    priority,
			}
			if scheduleAt != "" {
				t, err := time.Parse(time.RFC3339, scheduleAt)
				if err != nil {
					return fmt.Errorf("invalid --schedule-at (want RFC3339): %w", err)
				}
				input.ScheduledAt = &t
			}

			post, err := service.CreatePost(ctx, userID, input)
			if err != nil {
				return err
			}

			fmt.Printf("Created post %d (%s)\n", post.ID, post.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owning user ID")
	cmd.Flags().StringVar(&title, "title", "", "post title")
	cmd.Flags().StringVar(&description, "description", "", "post body")
	cmd.Flags().StringSliceVar(&platforms, "platforms", nil, "target platforms (comma-separated)")
	cmd.Flags().StringSliceVar(&mediaRefs, "media", nil, "media references")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "hashtags / tags")
	cmd.Flags().IntVar(&priority, "priority", 0, "publish priority (higher publishes sooner)")
	cmd.Flags().StringVar(&scheduleAt, "schedule-at", "", "schedule time (RFC3339); omit to keep as draft")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("platforms")
	return cmd
}

func postListCmd() *cobra.Command {
	var (
		userID string
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.DefaultPostFilter()
			filter.Limit = limit
			if userID != "" {
				filter.UserID = &userID
			}
			if status != "" {
				s := models.PostStatus(status)
				filter.Status = &s
			}

			posts, err := repo.ListPosts(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("%-6s %-12s %-10s %-30s %s\n", "ID", "STATUS", "PRIORITY", "PLATFORMS", "TITLE")
			for _, p := range posts {
				fmt.Printf("%-6d %-12s %-10d %-30s %s\n",
					p.ID, p.Status, p.Priority, strings.Join(p.Platforms, ","), p.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "filter by user ID")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&limit, "limit", 50, "max posts to list")
	return cmd
}

func postShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <post-id>",
		Short: "Show a post and its per-platform results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			post, err := repo.GetPostByID(ctx, id)
			if err != nil {
				return err
			}

			fmt.Printf("Post %d: %s\n", post.ID, post.Title)
			fmt.Printf("  Status:    %s\n", post.Status)
			fmt.Printf("  Platforms: %s\n", strings.Join(post.Platforms, ", "))
			fmt.Printf("  Priority:  %d\n", post.Priority)
			if post.ScheduledFor != nil {
				fmt.Printf("  Scheduled: %s\n", post.ScheduledFor.Format(time.RFC3339))
			}
			if post.ErrorMessage != "" {
				fmt.Printf("  Error:     %s\n", post.ErrorMessage)
			}
			if len(post.Results) > 0 {
				fmt.Println("  Results:")
				for _, r := range post.Results {
					line := fmt.Sprintf("    %-12s %s", r.Platform, r.Status)
					if r.URL != "" {
						line += "  " + r.URL
					}
					if r.ErrorMessage != "" {
						line += fmt.Sprintf("  (%s: %s)", r.ErrorCode, r.ErrorMessage)
					}
					fmt.Println(line)
				}
			}
			return nil
		},
	}
	return cmd
}

func postDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete a post and its queue items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			service, _ := buildService()
			if err := service.DeletePost(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Deleted post %d\n", id)
			return nil
		},
	}
	return cmd
}

// ============ PUBLISH COMMANDS ============

func publishCmd() *cobra.Command {
	var platforms []string

	cmd := &cobra.Command{
		Use:   "publish <post-id>",
		Short: "Publish a post to its target platforms now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			service, _ := buildService()
			results, err := service.PublishNow(ctx, id, platforms)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Publish Results ===\n")
			for _, r := range results {
				if r.Status == models.ResultSuccess {
					fmt.Printf("%-12s success  %s\n", r.Platform, r.URL)
				} else {
					fmt.Printf("%-12s failed   %s: %s\n", r.Platform, r.ErrorCode, r.ErrorMessage)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&platforms, "platforms", nil, "subset of target platforms")
	return cmd
}

// ============ QUEUE COMMANDS ============

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Publishing queue commands",
	}

	cmd.AddCommand(queueListCmd())
	cmd.AddCommand(queueProcessCmd())
	cmd.AddCommand(queueRetryCmd())
	cmd.AddCommand(queueScheduleCmd())
	return cmd
}

func queueListCmd() *cobra.Command {
	var (
		userID string
		status string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			service, _ := buildService()

			filter := storage.DefaultQueueFilter()
			filter.Limit = limit
			filter.Offset = offset
			if userID != "" {
				filter.UserID = &userID
			}
			if status != "" {
				s := models.QueueItemStatus(status)
				filter.Status = &s
			}

			items, total, err := service.QueueStatus(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("%-6s %-8s %-12s %-12s %-8s %-20s %s\n",
				"ID", "POST", "PLATFORM", "STATUS", "RETRIES", "SCHEDULED", "ERROR")
			for _, item := range items {
				fmt.Printf("%-6d %-8d %-12s %-12s %d/%-6d %-20s %s\n",
					item.ID, item.PostID, item.Platform, item.Status,
					item.RetryCount, item.MaxRetries,
					item.ScheduledAt.Format("2006-01-02 15:04"),
					item.ErrorMessage)
			}
			fmt.Printf("\n%d of %d items\n", len(items), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "filter by user ID")
	cmd.Flags().StringVar(&status, "status", "", "filter by item status")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func queueProcessCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run a single queue drain cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, processor := buildService()

			if _, err := processor.ReconcileStale(ctx); err != nil {
				return err
			}

			stats, err := processor.Tick(ctx, batchSize)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Drain Results ===\n")
			fmt.Printf("Processed:  %d\n", stats.Processed)
			fmt.Printf("Successful: %d\n", stats.Successful)
			fmt.Printf("Failed:     %d\n", stats.Failed)
			fmt.Printf("Retried:    %d\n", stats.Retried)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch", 0, "batch size (default from config)")
	return cmd
}

func queueRetryCmd() *cobra.Command {
	var (
		userID      string
		maxAgeHours int
		itemID      uint
	)

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Requeue failed items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			service, _ := buildService()

			if itemID != 0 {
				if err := service.RetryItem(ctx, itemID); err != nil {
					return err
				}
				fmt.Printf("Requeued item %d\n", itemID)
				return nil
			}

			count, err := service.RetryFailed(ctx, userID, time.Duration(maxAgeHours)*time.Hour)
			if err != nil {
				return err
			}
			fmt.Printf("Requeued %d failed items\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "restrict to one user")
	cmd.Flags().IntVar(&maxAgeHours, "max-age", 24, "only items failed within this many hours")
	cmd.Flags().UintVar(&itemID, "item", 0, "retry one specific failed item")
	return cmd
}

func queueScheduleCmd() *cobra.Command {
	var (
		platforms  []string
		at         string
		staggerMin int
	)

	cmd := &cobra.Command{
		Use:   "schedule <post-id>",
		Short: "Create queue items for a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			service, _ := buildService()

			start := time.Now()
			if at != "" {
				start, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at (want RFC3339): %w", err)
				}
			}

			if staggerMin > 0 {
				post, err := repo.GetPostByID(ctx, id)
				if err != nil {
					return err
				}
				targets := platforms
				if len(targets) == 0 {
					targets = post.Platforms
				}
				advisor := schedule.NewAdvisor()
				for name, t := range advisor.StaggeredSchedule(targets, start, staggerMin) {
					if _, err := service.Schedule(ctx, id, []string{name}, t); err != nil {
						return err
					}
					fmt.Printf("%-12s scheduled at %s\n", name, t.Format(time.RFC3339))
				}
				return nil
			}

			ids, err := service.Schedule(ctx, id, platforms, start)
			if err != nil {
				return err
			}
			fmt.Printf("Created %d queue items for %s\n", len(ids), start.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&platforms, "platforms", nil, "subset of target platforms")
	cmd.Flags().StringVar(&at, "at", "", "schedule time (RFC3339, default now)")
	cmd.Flags().IntVar(&staggerMin, "stagger", 0, "stagger platforms by this many minutes")
	return cmd
}

// ============ CONNECTION COMMANDS ============

func connectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connection",
		Short: "Platform connection commands",
	}

	cmd.AddCommand(connectionAddCmd())
	cmd.AddCommand(connectionListCmd())
	cmd.AddCommand(connectionRemoveCmd())
	return cmd
}

func connectionAddCmd() *cobra.Command {
	var (
		userID    string
		token     string
		expiresIn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "add <platform>",
		Short: "Record a platform authorization for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			conn := &models.PlatformConnection{
				UserID:      userID,
				Platform:    args[0],
				AccessToken: token,
				Active:      true,
			}
			if expiresIn > 0 {
				expiry := time.Now().Add(expiresIn)
				conn.ExpiresAt = &expiry
			}
			if err := repo.SaveConnection(ctx, conn); err != nil {
				return err
			}
			fmt.Printf("Connected %s for user %s\n", args[0], userID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	cmd.Flags().StringVar(&token, "token", "sandbox", "access token")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "token lifetime (0 = does not expire)")
	cmd.MarkFlagRequired("user")
	return cmd
}

func connectionListCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's platform connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			store := connections.NewStore(repo)
			conns, err := repo.ListConnections(ctx, userID)
			if err != nil {
				return err
			}
			active, err := store.ActivePlatforms(ctx, userID)
			if err != nil {
				return err
			}
			activeSet := make(map[string]bool, len(active))
			for _, p := range active {
				activeSet[p] = true
			}

			fmt.Printf("%-12s %-8s %s\n", "PLATFORM", "ACTIVE", "EXPIRES")
			for _, c := range conns {
				expires := "never"
				if c.ExpiresAt != nil {
					expires = c.ExpiresAt.Format(time.RFC3339)
				}
				fmt.Printf("%-12s %-8t %s\n", c.Platform, activeSet[c.Platform], expires)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	cmd.MarkFlagRequired("user")
	return cmd
}

func connectionRemoveCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "remove <platform>",
		Short: "Remove a platform connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := repo.DeleteConnection(ctx, userID, args[0]); err != nil {
				return err
			}
			fmt.Printf("Disconnected %s for user %s\n", args[0], userID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	cmd.MarkFlagRequired("user")
	return cmd
}

// ============ ADVISOR COMMANDS ============

func adviseCmd() *cobra.Command {
	var (
		platforms []string
		daysAhead int
	)

	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Suggest optimal posting times",
		RunE: func(cmd *cobra.Command, args []string) error {
			advisor := schedule.NewAdvisor()
			times := advisor.OptimalTimes(platforms, daysAhead)

			for _, name := range platforms {
				fmt.Printf("%s:\n", name)
				for i, t := range times[name] {
					if i >= 5 {
						break
					}
					fmt.Printf("  %s\n", t.Format("Mon Jan 2 15:04"))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&platforms, "platforms", []string{"instagram", "etsy"}, "platforms to advise on")
	cmd.Flags().IntVar(&daysAhead, "days", 7, "days to look ahead")
	return cmd
}

func parseID(arg string) (uint, error) {
	var id uint
	if _, err := fmt.Sscanf(arg, "%d", &id); err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
