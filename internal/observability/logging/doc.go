// Package logging builds the application's slog logger and carries it through
// a context.
//
// Output goes to stderr so that command output on stdout (health reports,
// check results) stays clean. LOG_FORMAT selects json (default) or text;
// LOG_LEVEL selects debug, info, warn or error.
//
// Example usage:
//
//	import "feedwatch/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger(logging.FromEnv())
//	    slog.SetDefault(logger)
//	    ctx := logging.WithLogger(context.Background(), logger)
//	    run(ctx)
//	}
//
//	func run(ctx context.Context) {
//	    logging.FromContext(ctx).Info("poll cycle started")
//	}
package logging
