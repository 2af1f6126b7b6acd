package health

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/diagram-service/internal/logger"
	"github.com/iliyamo/diagram-service/internal/metrics"
	"github.com/iliyamo/diagram-service/internal/model"
	"github.com/iliyamo/diagram-service/internal/repository"
	"github.com/iliyamo/diagram-service/internal/secrets"
)

// DatabaseProber is the read-only surface of the diagram repository used by
// the database probe.
type DatabaseProber interface {
	Table() string
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	Sample(ctx context.Context, limit int) ([]*model.Diagram, error)
	Columns(ctx context.Context) ([]repository.ColumnInfo, error)
	Size(ctx context.Context) (repository.TableSize, error)
}

// Options holds the static values echoed in every report and the knobs of
// the aggregator.
type Options struct {
	ServiceName string
	Region      string
	Environment string
	Version     string
	VaultURL    string
	Timeout     time.Duration // bound for one report, zero means none
	Parallel    bool          // run independent probes concurrently
	SampleRows  int
}

// Dependencies are the probed components.  Any of them may be nil; a nil
// dependency fails its probe instead of panicking.
type Dependencies struct {
	Secrets  secrets.Provider
	Keys     secrets.KeyLister
	Database DatabaseProber
	Journal  *Journal
	System   SystemSampler
}

// Checker builds health reports.  It holds no per-request state and is safe
// for concurrent use.
type Checker struct {
	opts Options
	deps Dependencies
	now  func() time.Time
}

// NewChecker creates a Checker.
func NewChecker(opts Options, deps Dependencies) *Checker {
	if opts.SampleRows < 1 {
		opts.SampleRows = 1
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	return &Checker{opts: opts, deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

// ServiceInfo identifies the running service.
type ServiceInfo struct {
	Status Status `json:"status"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

func (c *Checker) serviceInfo() ServiceInfo {
	return ServiceInfo{Status: StatusHealthy, Name: c.opts.ServiceName, Region: c.opts.Region}
}

// probe is one named, independent check.  fn writes only its own outputs.
type probe struct {
	name string
	fn   func(ctx context.Context) error
}

// run executes every probe and returns their errors in order together with
// the per-probe results.  A failing or panicking probe never stops the others.
func (c *Checker) run(ctx context.Context, probes ...probe) ([]error, map[string]ProbeResult) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	errs := make([]error, len(probes))
	results := make([]ProbeResult, len(probes))
	if c.opts.Parallel {
		var g errgroup.Group
		for i, p := range probes {
			i, p := i, p
			g.Go(func() error {
				results[i], errs[i] = runProbe(ctx, p)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, p := range probes {
			results[i], errs[i] = runProbe(ctx, p)
		}
	}

	byName := make(map[string]ProbeResult, len(probes))
	for i, p := range probes {
		byName[p.name] = results[i]
	}
	return errs, byName
}

func runProbe(ctx context.Context, p probe) (res ProbeResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s probe panicked: %v", p.name, r)
		}
		res = ProbeResult{Status: StatusHealthy, LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			res.Status = StatusUnhealthy
			res.Error = err.Error()
			logger.L.Warn("health probe failed", "probe", p.name, "err", err)
		}
		metrics.ProbeResults.WithLabelValues(p.name, string(res.Status)).Inc()
		metrics.ProbeLatency.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	}()
	return ProbeResult{}, p.fn(ctx)
}

var (
	errNoSecretStore = errors.New("secret store not configured")
	errNoKeyStore    = errors.New("key store not configured")
	errNoDatabase    = errors.New("database not configured")
)

func (c *Checker) listSecrets(ctx context.Context) ([]secrets.SecretProperties, error) {
	if c.deps.Secrets == nil {
		return nil, errNoSecretStore
	}
	return c.deps.Secrets.ListSecrets(ctx)
}

func (c *Checker) listKeys(ctx context.Context) ([]secrets.KeyProperties, error) {
	if c.deps.Keys == nil {
		return nil, errNoKeyStore
	}
	return c.deps.Keys.ListKeys(ctx)
}

// storeError renders the combined secrets/keys failure message, or nil.
func storeError(secretsErr, keysErr error) *string {
	var parts []string
	if secretsErr != nil {
		parts = append(parts, "Secrets read error: "+secretsErr.Error())
	}
	if keysErr != nil {
		parts = append(parts, "Keys read error: "+keysErr.Error())
	}
	if len(parts) == 0 {
		return nil
	}
	msg := strings.Join(parts, "; ")
	return &msg
}

// KeyVaultStatus reports whether the secret and key stores are readable.
type KeyVaultStatus struct {
	Status          Status  `json:"status"`
	URL             string  `json:"url"`
	SecretsReadable bool    `json:"secrets_readable"`
	KeysReadable    bool    `json:"keys_readable"`
	SecretsCount    *int    `json:"secrets_count,omitempty"`
	KeysCount       *int    `json:"keys_count,omitempty"`
	Error           *string `json:"error"`

	Probes map[string]ProbeResult `json:"probes"`
}

// KeyVaultReport is the body of the store health endpoint.
type KeyVaultReport struct {
	Timestamp     time.Time      `json:"timestamp"`
	Service       ServiceInfo    `json:"function_app"`
	KeyVault      KeyVaultStatus `json:"key_vault"`
	OverallStatus Status         `json:"overall_status"`
}

// KeyVault lists secrets and keys and reduces the two outcomes with
// DualProbe.
func (c *Checker) KeyVault(ctx context.Context) KeyVaultReport {
	var secretsN, keysN int
	errs, probes := c.run(ctx,
		probe{"secrets", func(ctx context.Context) error {
			list, err := c.listSecrets(ctx)
			secretsN = len(list)
			return err
		}},
		probe{"keys", func(ctx context.Context) error {
			list, err := c.listKeys(ctx)
			keysN = len(list)
			return err
		}},
	)

	kv := KeyVaultStatus{
		URL:             c.opts.VaultURL,
		SecretsReadable: errs[0] == nil,
		KeysReadable:    errs[1] == nil,
		Error:           storeError(errs[0], errs[1]),
		Probes:          probes,
	}
	if kv.SecretsReadable {
		kv.SecretsCount = &secretsN
	}
	if kv.KeysReadable {
		kv.KeysCount = &keysN
	}
	kv.Status = DualProbe(kv.SecretsReadable, kv.KeysReadable)

	return KeyVaultReport{
		Timestamp:     c.now(),
		Service:       c.serviceInfo(),
		KeyVault:      kv,
		OverallStatus: kv.Status,
	}
}

// KeyVaultDetail lists the store contents without values.
type KeyVaultDetail struct {
	Status  Status                     `json:"status"`
	URL     string                     `json:"url"`
	Secrets []secrets.SecretProperties `json:"secrets"`
	Keys    []secrets.KeyProperties    `json:"keys"`
	Error   *string                    `json:"error"`

	Probes map[string]ProbeResult `json:"probes"`
}

// DetailedReport is the body of the detailed store health endpoint.
type DetailedReport struct {
	Timestamp     time.Time      `json:"timestamp"`
	Service       ServiceInfo    `json:"function_app"`
	KeyVault      KeyVaultDetail `json:"key_vault"`
	OverallStatus Status         `json:"overall_status"`
}

// Detailed lists secret and key properties.  Any failure makes the report
// unhealthy.
func (c *Checker) Detailed(ctx context.Context) DetailedReport {
	kv := KeyVaultDetail{
		URL:     c.opts.VaultURL,
		Secrets: []secrets.SecretProperties{},
		Keys:    []secrets.KeyProperties{},
	}
	errs, probes := c.run(ctx,
		probe{"secrets", func(ctx context.Context) error {
			list, err := c.listSecrets(ctx)
			if err == nil {
				kv.Secrets = list
			}
			return err
		}},
		probe{"keys", func(ctx context.Context) error {
			list, err := c.listKeys(ctx)
			if err == nil {
				kv.Keys = list
			}
			return err
		}},
	)
	kv.Error = storeError(errs[0], errs[1])
	kv.Probes = probes
	kv.Status = AllOrNothing(errs...)

	return DetailedReport{
		Timestamp:     c.now(),
		Service:       c.serviceInfo(),
		KeyVault:      kv,
		OverallStatus: kv.Status,
	}
}

// DatabaseStatus is the outcome of the database probe.  Every sub-check
// runs even when an earlier one failed.
type DatabaseStatus struct {
	Status    Status                  `json:"status"`
	Table     string                  `json:"table"`
	Connected bool                    `json:"connected"`
	RowCount  *int64                  `json:"row_count,omitempty"`
	Sample    []*model.Diagram        `json:"sample,omitempty"`
	Columns   []repository.ColumnInfo `json:"columns,omitempty"`
	Size      *repository.TableSize   `json:"size,omitempty"`
	Errors    []string                `json:"errors,omitempty"`
	LatencyMs int64                   `json:"latency_ms"`

	Probes map[string]ProbeResult `json:"probes,omitempty"`
}

// DatabaseReport is the body of the database health endpoint.
type DatabaseReport struct {
	Timestamp     time.Time      `json:"timestamp"`
	Service       ServiceInfo    `json:"function_app"`
	Database      DatabaseStatus `json:"database"`
	OverallStatus Status         `json:"overall_status"`
}

// Database probes connectivity, row count, a sample read, column metadata
// and table size.  Any failure degrades the report.
func (c *Checker) Database(ctx context.Context) DatabaseReport {
	start := time.Now()
	st := DatabaseStatus{}
	db := c.deps.Database

	var errs []error
	if db == nil {
		errs = []error{errNoDatabase}
	} else {
		st.Table = db.Table()
		var (
			count int64
			size  repository.TableSize
		)
		errs, st.Probes = c.run(ctx,
			probe{"db_ping", func(ctx context.Context) error { return db.Ping(ctx) }},
			probe{"db_count", func(ctx context.Context) (err error) {
				count, err = db.Count(ctx)
				return err
			}},
			probe{"db_sample", func(ctx context.Context) (err error) {
				st.Sample, err = db.Sample(ctx, c.opts.SampleRows)
				return err
			}},
			probe{"db_columns", func(ctx context.Context) (err error) {
				st.Columns, err = db.Columns(ctx)
				return err
			}},
			probe{"db_size", func(ctx context.Context) (err error) {
				size, err = db.Size(ctx)
				return err
			}},
		)
		st.Connected = errs[0] == nil
		if errs[1] == nil {
			st.RowCount = &count
		}
		if errs[4] == nil {
			st.Size = &size
		}
	}

	for _, err := range errs {
		if err != nil {
			st.Errors = append(st.Errors, err.Error())
		}
	}
	st.Status = SingleProbe(errors.Join(errs...))
	st.LatencyMs = time.Since(start).Milliseconds()

	return DatabaseReport{
		Timestamp:     c.now(),
		Service:       c.serviceInfo(),
		Database:      st,
		OverallStatus: st.Status,
	}
}

// StatusReport is the body of the service status endpoint.
type StatusReport struct {
	Status         Status            `json:"status"`
	Timestamp      time.Time         `json:"timestamp"`
	Service        string            `json:"service"`
	Version        string            `json:"version"`
	Environment    string            `json:"environment"`
	Checks         map[string]string `json:"checks"`
	SystemMetrics  SystemMetrics     `json:"system_metrics"`
	FileOperations FileCheck         `json:"file_operations"`
}

// journalEntry is one line of the health journal.
type journalEntry struct {
	ID          string       `json:"_id"`
	Data        StatusReport `json:"health_check_data"`
	CreatedAt   time.Time    `json:"created_at"`
	ServiceName string       `json:"service_name"`
}

// ServiceStatus refreshes the health file, samples host metrics and appends
// the resulting report to the journal.  A filesystem failure degrades the
// report; metrics failures are reported but never change the status.
func (c *Checker) ServiceStatus(ctx context.Context) StatusReport {
	now := c.now()
	rep := StatusReport{
		Timestamp:   now,
		Service:     c.opts.ServiceName,
		Version:     c.opts.Version,
		Environment: c.opts.Environment,
	}

	errs, _ := c.run(ctx,
		probe{"filesystem", func(ctx context.Context) (err error) {
			if c.deps.Journal == nil {
				rep.FileOperations = FileCheck{Status: FileError, Error: "journal not configured"}
				return errors.New("journal not configured")
			}
			rep.FileOperations, err = c.deps.Journal.Touch(now)
			return err
		}},
		probe{"system", func(ctx context.Context) (err error) {
			if c.deps.System == nil {
				rep.SystemMetrics = SystemMetrics{Error: "system sampler not configured"}
				return nil
			}
			rep.SystemMetrics, err = c.deps.System.Sample(ctx)
			if err != nil {
				rep.SystemMetrics.Error = "Unable to retrieve system metrics: " + err.Error()
			}
			return err
		}},
	)

	rep.Status = SingleProbe(errs[0])
	rep.Checks = map[string]string{
		"function_app":    string(StatusHealthy),
		"runtime":         string(StatusHealthy),
		"timestamp_check": string(StatusHealthy),
		"file_check":      rep.FileOperations.Status,
	}

	if c.deps.Journal != nil {
		entry := journalEntry{
			ID:          "health_check_" + strings.NewReplacer(":", "-", ".", "-").Replace(now.Format(time.RFC3339Nano)),
			Data:        rep,
			CreatedAt:   now,
			ServiceName: c.opts.ServiceName,
		}
		if err := c.deps.Journal.Append(entry); err != nil {
			logger.L.Error("health journal append failed", "err", err)
		}
	}
	return rep
}
