package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/stockledger/internal/audit"
	audithttp "github.com/odyssey-erp/stockledger/internal/audit/http"
	"github.com/odyssey-erp/stockledger/internal/dataimport"
	"github.com/odyssey-erp/stockledger/internal/events"
	"github.com/odyssey-erp/stockledger/internal/integration"
	"github.com/odyssey-erp/stockledger/internal/inventory"
	"github.com/odyssey-erp/stockledger/internal/masterdata"
	"github.com/odyssey-erp/stockledger/internal/observability"
	"github.com/odyssey-erp/stockledger/internal/persist"
	"github.com/odyssey-erp/stockledger/internal/platform/kv"
	"github.com/odyssey-erp/stockledger/internal/procurement"
	"github.com/odyssey-erp/stockledger/internal/rbac"
	"github.com/odyssey-erp/stockledger/jobs"
)

// Container owns every long-lived component of one ledger process.
type Container struct {
	Config      *Config
	Logger      *slog.Logger
	Store       kv.Store
	Persister   *persist.Persister
	Bus         *events.Bus
	Metrics     *observability.Metrics
	Catalog     *masterdata.Catalog
	Ledger      *inventory.Store
	Inventory   *inventory.Service
	Procurement *procurement.Service
	Audit       *audit.Service
	Mapper      *dataimport.Mapper
	Applier     *dataimport.Applier
	Tasks       *jobs.LedgerTasks

	jobClient *jobs.Client
	inspector *asynq.Inspector
	detach    []func()
}

// Build opens the configured store and wires the container.
func Build(ctx context.Context, cfg *Config, logger *slog.Logger) (*Container, error) {
	store, err := kv.Open(ctx, kv.Options{Driver: cfg.StoreDriver, RedisAddr: cfg.RedisAddr, PGDSN: cfg.PGDSN})
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}
	c, err := BuildWithStore(ctx, cfg, logger, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return c, nil
}

// BuildWithStore wires the container on an already open store and restores
// every persisted aggregate.
func BuildWithStore(ctx context.Context, cfg *Config, logger *slog.Logger, store kv.Store) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Bus:     events.NewBus(),
		Metrics: observability.NewMetrics(),
		Catalog: catalog,
	}

	c.Ledger = inventory.NewStore(cfg.CompanyID)
	transfers := inventory.NewTransferStore()
	auditStore := audit.NewStore()
	requests := procurement.NewRequestStore()
	orders := procurement.NewOrderStore()

	c.Persister = persist.New(store, cfg.KVPrefix, cfg.CompanyID, logger)
	c.Persister.Register(c.Ledger, transfers, auditStore, requests, orders)
	c.Persister.OnFailure(c.Metrics.Ledger().FlushFailed)
	if err := c.Persister.Load(ctx); err != nil {
		return nil, err
	}

	c.Audit = audit.NewService(auditStore, cfg.CompanyID)
	c.Inventory = inventory.NewService(c.Ledger, transfers, c.Audit, c.Persister, c.Bus, logger, inventory.ServiceConfig{
		CompanyID:          cfg.CompanyID,
		AllowNegativeStock: cfg.AllowNegativeStock,
	})
	c.Procurement = procurement.NewService(requests, orders, c.Audit, c.Persister, c.Bus, logger, cfg.CompanyID)

	// Empty master tables mean names and SKUs are taken verbatim.
	var products dataimport.ProductChecker
	if catalog.HasProducts() {
		products = catalog
	}
	var warehouses dataimport.WarehouseResolver
	if catalog.HasWarehouses() {
		warehouses = catalog
	}
	c.Mapper = dataimport.NewMapper(products)
	c.Applier = dataimport.NewApplier(c.Ledger, warehouses, c.Audit, c.Persister, c.Bus, logger)

	c.detach = append(c.detach, c.Metrics.Ledger().Attach(c.Bus))
	if cfg.AutoReceipt {
		receipts := integration.NewAutoReceipt(c.Inventory, c.Inventory.Query(), logger)
		c.detach = append(c.detach, receipts.Attach(c.Bus))
	}

	c.Tasks = &jobs.LedgerTasks{
		Applier:   c.Applier,
		Flusher:   c.Persister,
		Ledger:    c.Ledger,
		Snapshots: c.Persister,
		Metrics:   c.Metrics.Jobs(),
		Logger:    logger,
	}
	if cfg.JobsEnabled {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		c.jobClient = jobs.NewClient(redisOpts, cfg.CompanyID)
		c.inspector = asynq.NewInspector(redisOpts)
	}
	logger.Info("ledger ready",
		slog.String("store", cfg.StoreDriver),
		slog.Int("movements", c.Ledger.Len()),
		slog.Bool("jobs", cfg.JobsEnabled),
	)
	return c, nil
}

func loadCatalog(cfg *Config) (*masterdata.Catalog, error) {
	if cfg.MasterDataFile == "" {
		return masterdata.NewCatalog(masterdata.Data{}), nil
	}
	catalog, err := masterdata.LoadFile(cfg.MasterDataFile)
	if err != nil {
		return nil, fmt.Errorf("app: load master data: %w", err)
	}
	return catalog, nil
}

// Router builds the HTTP surface.
func (c *Container) Router() http.Handler {
	rbacMiddleware := rbac.Middleware{CompanyID: c.Config.CompanyID, Logger: c.Logger}

	var enqueuer dataimport.Enqueuer
	if c.jobClient != nil {
		enqueuer = c.jobClient
	}
	var inspector jobs.QueueInspector
	if c.inspector != nil {
		inspector = c.inspector
	}
	return NewRouter(RouterParams{
		Logger:             c.Logger,
		Config:             c.Config,
		RBACMiddleware:     rbacMiddleware,
		InventoryHandler:   inventory.NewHandler(c.Logger, c.Inventory, rbacMiddleware),
		ProcurementHandler: procurement.NewHandler(c.Logger, c.Procurement, rbacMiddleware),
		ImportHandler:      dataimport.NewHandler(c.Logger, c.Mapper, c.Applier, enqueuer, rbacMiddleware),
		AuditHandler:       audithttp.NewHandler(c.Logger, c.Audit),
		MasterDataHandler:  masterdata.NewHandler(c.Catalog),
		PermissionsHandler: rbac.NewPermissionsHandler(),
		JobHandler:         jobs.NewHandler(inspector, c.Logger),
		Metrics:            c.Metrics,
		Ready:              c.Store.Ping,
	})
}

// Worker builds the embedded job worker, nil when jobs are disabled.
func (c *Container) Worker() (*jobs.Worker, error) {
	if !c.Config.JobsEnabled {
		return nil, nil
	}
	cron, err := c.Tasks.Cron(c.Config.SnapshotCron, c.Config.IntegrityCron)
	if err != nil {
		return nil, err
	}
	return jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: c.Config.RedisAddr},
		Logger:    c.Logger,
		Handlers:  c.Tasks.Handlers(),
		Cron:      cron,
	})
}

// Close writes every aggregate one last time and releases connections.
func (c *Container) Close(ctx context.Context) error {
	for _, fn := range c.detach {
		fn()
	}
	var errs []error
	if err := c.Persister.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if c.jobClient != nil {
		if err := c.jobClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.inspector != nil {
		if err := c.inspector.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
