package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/prodcompare/backend/config"
	"github.com/prodcompare/backend/internal/domain"
	"github.com/prodcompare/backend/internal/infrastructure/geo"
	"github.com/prodcompare/backend/internal/infrastructure/recommender"
	"github.com/prodcompare/backend/internal/infrastructure/reference"
	"github.com/prodcompare/backend/internal/infrastructure/tracking"
	"github.com/prodcompare/backend/internal/observability"
	"github.com/prodcompare/backend/internal/usecase"
)

type options struct {
	catalogPath  string
	policyPath   string
	regionsPath  string
	pagePath     string
	selection    []string
	query        string
	mode         string
	ip           string
	country      string
	sessionID    string
	collectionID string
	mockLocation bool
	track        bool
	asJSON       bool
	verbose      bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Render a product comparison table",
		Long: `Render a product comparison table from a catalog export.

The current product is taken from --path the way the storefront reads it from
the page URL. Products are added with --select, or chosen by the recommender
with --query. Without either, the whole catalog is compared.`,
		Example: `  compare --catalog products.json --policy ordering.yaml --path /products/tall-lamp --select 2
  compare --catalog products.json --query "something for a small desk" --mock-location`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.catalogPath, "catalog", "", "product catalog JSON file (required)")
	flags.StringVar(&opts.policyPath, "policy", "", "spec ordering policy YAML or JSON file")
	flags.StringVar(&opts.regionsPath, "regions", "", "ISO-3166 region table JSON file (embedded table by default)")
	flags.StringVar(&opts.pagePath, "path", "", "storefront page path identifying the current product")
	flags.StringSliceVar(&opts.selection, "select", nil, "product IDs to compare, in order")
	flags.StringVar(&opts.query, "query", "", "ask the recommendation backend to pick a product")
	flags.StringVar(&opts.mode, "mode", "", "selection mode: two_column or multi_column")
	flags.StringVar(&opts.ip, "ip", "", "caller IP for geolocation")
	flags.StringVar(&opts.country, "country", "", "alpha-2 country code overriding geolocation")
	flags.StringVar(&opts.sessionID, "session", "", "session ID reported with tracking events")
	flags.StringVar(&opts.collectionID, "collection", "", "collection ID reported with tracking events")
	flags.BoolVar(&opts.mockLocation, "mock-location", false, "use the fixed Vancouver, CA location")
	flags.BoolVar(&opts.track, "track", false, "send the comparison to the tracking backend")
	flags.BoolVar(&opts.asJSON, "json", false, "print the table as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	_ = cmd.MarkFlagRequired("catalog")
	cmd.AddCommand(newRegionsCommand())

	return cmd
}

type referenceData struct {
	catalog []domain.Product
	policy  domain.OrderingPolicy
	regions *domain.RegionTable
}

// loadReferenceData reads the three input files concurrently
func loadReferenceData(ctx context.Context, opts *options) (*referenceData, error) {
	data := &referenceData{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		catalog, err := reference.CatalogFile(opts.catalogPath)
		data.catalog = catalog
		return err
	})
	g.Go(func() error {
		policy, err := reference.OrderingPolicyFile(opts.policyPath)
		data.policy = policy
		return err
	})
	g.Go(func() error {
		regions, err := reference.RegionTable(opts.regionsPath)
		data.regions = regions
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

func runCompare(ctx context.Context, out io.Writer, opts *options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := zerolog.Nop()
	if opts.verbose {
		logger = observability.NewLogger(observability.LogConfig{
			Level:       "debug",
			Format:      "console",
			Output:      os.Stderr,
			ServiceName: "compare",
		})
	}

	data, err := loadReferenceData(ctx, opts)
	if err != nil {
		return err
	}

	mode := cfg.Comparison.Mode
	if opts.mode != "" {
		mode = opts.mode
	}
	sessionID := opts.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	deps := usecase.SessionDeps{
		Geolocation: locationProvider(cfg, opts, data.regions, logger),
		Recommendations: recommender.NewClient(recommender.ClientConfig{
			BaseURL:   cfg.Backend.BaseURL,
			Timeout:   cfg.Backend.Timeout,
			RateLimit: float64(cfg.RateLimit.Recommender) / 60,
		}, logger),
		Ranker:  usecase.NewBestSpecRanker(nil, usecase.RankerConfig{AlwaysMaximum: cfg.Comparison.AlwaysMaximum}, logger),
		Regions: usecase.NewRegionResolver(data.regions, logger),
	}
	if opts.track {
		deps.Tracking = tracking.NewClient(tracking.ClientConfig{
			BaseURL: cfg.Backend.BaseURL,
			Timeout: cfg.Backend.Timeout,
		}, logger)
	}

	session := usecase.NewComparisonSession(ctx, data.catalog, data.policy, deps, usecase.SessionConfig{
		Mode:                  usecase.ParseSelectionMode(mode),
		CurrentPath:           opts.pagePath,
		SessionID:             sessionID,
		CollectionID:          opts.collectionID,
		ClientIP:              opts.ip,
		TrackingDebounce:      cfg.Comparison.TrackingDebounce,
		LocationTimeout:       cfg.Geolocation.Timeout,
		RecommendationTimeout: cfg.Recommendation.Timeout,
	}, logger)
	defer session.Close()

	reconciler := session.Reconciler()
	switch {
	case opts.query != "":
		<-reconciler.SubmitQuery(ctx, opts.query)
		snap := reconciler.Snapshot()
		if snap.Recommendation == nil {
			return fmt.Errorf("no recommendation for %q", opts.query)
		}
		fmt.Fprintf(out, "Recommended: %s\n%s\n\n", snap.Recommendation.RecommendedProductTitle, snap.Recommendation.Reason)
	case len(opts.selection) > 0:
		for _, id := range opts.selection {
			if err := reconciler.Toggle(strings.TrimSpace(id)); err != nil {
				return fmt.Errorf("select %s: %w", id, err)
			}
		}
	default:
		reconciler.Replace(predefinedValues(data.catalog, reconciler.CurrentProduct()))
	}

	// Regional cells stay unknown when the lookup fails
	_ = session.WaitLocation()
	session.FlushTracking()

	table := session.Table()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}
	return renderTable(out, table)
}

// predefinedValues compares the whole catalog, current product first
func predefinedValues(catalog []domain.Product, current *domain.Product) []string {
	products := usecase.PredefinedSelection(catalog, current)
	values := make([]string, 0, len(products))
	if current != nil {
		values = append(values, current.ID.String())
	}
	for _, p := range products {
		values = append(values, p.ID.String())
	}
	return values
}

func locationProvider(cfg *config.Config, opts *options, regions *domain.RegionTable, logger zerolog.Logger) domain.GeolocationProvider {
	switch {
	case opts.country != "":
		code := strings.ToUpper(strings.TrimSpace(opts.country))
		name := code
		if row, ok := regions.Lookup(code); ok {
			name = row.Name
		}
		return &geo.MockProvider{Location: domain.LocationData{
			Country:     code,
			CountryCode: code,
			CountryName: name,
		}}
	case opts.mockLocation || cfg.Geolocation.Provider == "mock":
		return geo.NewMockProvider()
	default:
		return geo.NewClient(geo.ClientConfig{
			BaseURL: cfg.Geolocation.BaseURL,
			Timeout: cfg.Geolocation.Timeout,
		}, nil, logger)
	}
}
