package commands

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/internal/store"
	"github.com/healthdash/backend/pkg/config"
	"github.com/healthdash/backend/pkg/database"
	"github.com/healthdash/backend/pkg/logger"
	"github.com/healthdash/backend/pkg/redis"
)

// dbCmd groups database maintenance commands
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Metric store commands",
}

// dbCheckCmd tests the store connection and shows row counts
var dbCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Test the metric store connection",
	Long: `Tests the database connection and shows pool statistics.

This command:
- loads DATABASE_URL from config
- opens and pings the database
- ensures the schema
- prints the row count per metric kind

Example:
  go run ./cmd/healthdash db check`,
	RunE: runDBCheck,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbCheckCmd)
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== healthdash Database Check ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	PrintSuccess(fmt.Sprintf("Connected (%s)", db.Dialect))

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}
	fmt.Printf("   Response Time: %v\n\n", status.ResponseTime)

	rdb, err := redis.Connect(ctx, cfg.Redis)
	switch {
	case err != nil:
		PrintWarning(fmt.Sprintf("Redis unreachable: %v", err))
	case !rdb.Enabled():
		fmt.Println("   Redis: disabled")
	default:
		latency, _ := rdb.Ping(ctx)
		PrintSuccess(fmt.Sprintf("Redis reachable (%v)", latency))
		rdb.Close()
	}

	st := store.New(db, logger.Nop())
	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("❌ Failed to ensure schema: %w", err)
	}
	if !st.SnapshotUnique() {
		PrintWarning("Duplicate snapshot rows found; uniqueness for current values is not enforced")
	}

	counts, err := st.Counts(ctx)
	if err != nil {
		return fmt.Errorf("❌ Failed to count rows: %w", err)
	}

	fmt.Println("📊 Rows per metric:")
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("   %-18s %d\n", k, counts[contracts.Kind(k)])
	}

	tokens, err := st.Tokens(ctx)
	if err != nil {
		return fmt.Errorf("❌ Failed to list freshness tokens: %w", err)
	}
	fmt.Println("\n🔖 Freshness tokens:")
	if len(tokens) == 0 {
		fmt.Println("   (none yet)")
	}
	for _, e := range tokens {
		fmt.Printf("   %s\n      %s\n", e.URL, e.Token)
	}

	fmt.Println("\n📊 Connection Pool Statistics:")
	fmt.Printf("   Max Open: %d\n", status.Stats.MaxOpenConnections)
	fmt.Printf("   Open: %d\n", status.Stats.OpenConnections)
	fmt.Printf("   In Use: %d\n", status.Stats.InUse)
	fmt.Printf("   Idle: %d\n", status.Stats.Idle)

	fmt.Println("\n✅ All checks passed!")
	return nil
}

// maskPassword hides the password of a postgres URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), "xxxxx")
	return u.String()
}
