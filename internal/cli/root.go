// Package cli is the whctl command line: operator shortcuts for reports,
// package and purchase-request transitions and inventory item sync, run as
// the CRM service account.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/catalog"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/events"
	"github.com/ariefcatur/go-warehouse-ops/internal/inventory"
	kafkax "github.com/ariefcatur/go-warehouse-ops/internal/kafka"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/packages"
	"github.com/ariefcatur/go-warehouse-ops/internal/purchasing"
	"github.com/ariefcatur/go-warehouse-ops/internal/reports"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app holds what the subcommands share. api and em may be injected; otherwise
// they are built from flags, WH_* env vars and the optional config file.
type app struct {
	v    *viper.Viper
	api  espo.API
	em   events.Emitter
	log  *zap.Logger
	prod *kafkax.Producer

	packages   *packages.Service
	inventory  *inventory.Service
	purchasing *purchasing.Service
	reports    *reports.Service
	catalog    *catalog.Service
}

// NewRootCmd builds whctl. Pass a nil api to connect from configuration.
func NewRootCmd(api espo.API, em events.Emitter) *cobra.Command {
	_, root := newRoot(api, em)
	return root
}

// Execute runs whctl against the configured CRM and flushes pending events.
func Execute() error {
	a, root := newRoot(nil, nil)
	defer a.teardown()
	return root.Execute()
}

func newRoot(api espo.API, em events.Emitter) (*app, *cobra.Command) {
	a := &app{v: viper.New(), api: api, em: em}

	root := &cobra.Command{
		Use:           "whctl",
		Short:         "Warehouse operations against the CRM",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (yaml, json or toml)")
	pf.String("espo-url", "", "CRM API base, e.g. https://crm.example.com/api/v1")
	pf.String("espo-username", "", "CRM service account user")
	pf.String("espo-password", "", "CRM service account password")
	pf.Duration("timeout", 30*time.Second, "CRM request timeout")
	pf.String("kafka-brokers", "", "comma separated brokers; events are dropped when empty")
	pf.String("log-env", "development", "development or production")
	pf.Float64("cost-ratio", reports.DefaultEstimates.CostRatio, "report cost estimate as a share of net revenue")
	pf.Float64("shipping-fee", reports.DefaultEstimates.ShippingFeePerOrder, "report shipping estimate per order")
	pf.String("currency", reports.DefaultEstimates.DefaultCurrency, "report currency for orders without one")
	for _, name := range []string{
		"config", "espo-url", "espo-username", "espo-password", "timeout", "kafka-brokers", "log-env",
		"cost-ratio", "shipping-fee", "currency",
	} {
		_ = a.v.BindPFlag(name, pf.Lookup(name))
	}
	a.v.SetEnvPrefix("WH")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	// The API server reads the same estimates from these.
	_ = a.v.BindEnv("cost-ratio", "WH_COST_RATIO", "REPORT_COST_RATIO")
	_ = a.v.BindEnv("shipping-fee", "WH_SHIPPING_FEE", "REPORT_SHIPPING_FEE")
	_ = a.v.BindEnv("currency", "WH_CURRENCY", "REPORT_DEFAULT_CURRENCY")

	root.AddCommand(
		a.reportCmd(),
		a.packageCmd(),
		a.purchaseCmd(),
		a.inventoryCmd(),
		a.reloadCmd(),
	)
	return a, root
}

func (a *app) setup() error {
	if cfg := a.v.GetString("config"); cfg != "" {
		a.v.SetConfigFile(cfg)
		if err := a.v.ReadInConfig(); err != nil {
			return err
		}
	}

	log, err := logx.New(a.v.GetString("log-env"))
	if err != nil {
		return err
	}
	a.log = log

	if a.api == nil {
		a.api = espo.NewClient(a.v.GetString("espo-url"), a.v.GetDuration("timeout"), espo.Static{
			Username: a.v.GetString("espo-username"),
			Password: a.v.GetString("espo-password"),
		}, log)
	}
	if a.em == nil {
		if brokers := splitCSV(a.v.GetString("kafka-brokers")); len(brokers) > 0 {
			a.prod = kafkax.NewProducer(brokers, 64, log)
			a.prod.Start(context.Background())
			a.em = &kafkax.Emitter{Producer: a.prod, Service: "whctl"}
		}
	}

	a.packages = packages.NewService(a.api, "", a.em, log)
	a.inventory = inventory.NewService(a.api, a.em, log)
	a.purchasing = purchasing.NewService(a.api, a.em, log)
	est, err := a.estimates()
	if err != nil {
		return err
	}
	a.reports = reports.NewService(a.api, est, log)
	a.catalog = catalog.NewService(a.api, log)
	return nil
}

func (a *app) estimates() (reports.Estimates, error) {
	est := reports.Estimates{
		CostRatio:           a.v.GetFloat64("cost-ratio"),
		ShippingFeePerOrder: a.v.GetFloat64("shipping-fee"),
		DefaultCurrency:     a.v.GetString("currency"),
	}
	if est.CostRatio < 0 {
		return est, apperr.Invalid("cost-ratio", "must not be negative")
	}
	if est.ShippingFeePerOrder < 0 {
		return est, apperr.Invalid("shipping-fee", "must not be negative")
	}
	return est, nil
}

func (a *app) teardown() {
	if a.prod != nil {
		a.prod.Close()
		a.prod.WaitClosed()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
