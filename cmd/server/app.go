package main

import (
	"fmt"
	"log/slog"

	complianceHandler "custody/internal/compliance/handler"
	complianceMetrics "custody/internal/compliance/metrics"
	complianceService "custody/internal/compliance/service"
	complianceStore "custody/internal/compliance/store"
	kycHandler "custody/internal/kyc/handler"
	kycService "custody/internal/kyc/service"
	kycStore "custody/internal/kyc/store"
	"custody/internal/platform/config"
	"custody/internal/platform/metrics"
	"custody/internal/platform/postgres"
	reserveHandler "custody/internal/reserve/handler"
	reserveMetrics "custody/internal/reserve/metrics"
	reserveService "custody/internal/reserve/service"
	reserveStore "custody/internal/reserve/store"
	routerHandler "custody/internal/router/handler"
	routerMetrics "custody/internal/router/metrics"
	routerService "custody/internal/router/service"
	routerStore "custody/internal/router/store"
	tokenHandler "custody/internal/token/handler"
	tokenMetrics "custody/internal/token/metrics"
	tokenService "custody/internal/token/service"
	tokenStore "custody/internal/token/store"
	id "custody/pkg/domain"
	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/audit/publishers/compliance"
	"custody/pkg/platform/audit/publishers/stream"
	auditmemory "custody/pkg/platform/audit/store/memory"
	auditpostgres "custody/pkg/platform/audit/store/postgres"
	"custody/pkg/platform/circuit"
	"custody/pkg/platform/retry"
	txcontext "custody/pkg/platform/tx"
)

// app is the wired module graph.
type app struct {
	reserve *reserveService.Service
	router  *routerService.Service

	kycHTTP        *kycHandler.Handler
	tokenHTTP      *tokenHandler.Handler
	reserveHTTP    *reserveHandler.Handler
	complianceHTTP *complianceHandler.Handler
	routerHTTP     *routerHandler.Handler
}

// stores groups the persistence choice for every module.
type stores struct {
	events     audit.Store
	accounts   kycService.Store
	ledger     tokenService.Store
	reserve    reserveService.Store
	usage      complianceService.UsageStore
	operations routerService.Store
	tx         txcontext.Runner
}

func selectStores(in *infra) stores {
	s := stores{
		events:     auditmemory.NewInMemoryStore(),
		accounts:   kycStore.NewInMemory(),
		ledger:     tokenStore.NewInMemory(),
		reserve:    reserveStore.NewInMemory(),
		usage:      complianceStore.NewInMemory(),
		operations: routerStore.NewInMemory(),
		tx:         txcontext.NewLocalRunner(),
	}
	if in.db != nil {
		s.events = auditpostgres.New(in.db)
		s.accounts = kycStore.NewPostgres(in.db)
		s.ledger = tokenStore.NewPostgres(in.db)
		s.reserve = reserveStore.NewPostgres(in.db)
		s.operations = routerStore.NewPostgres(in.db)
		s.tx = postgres.NewTx(in.db)
	}
	if in.redis != nil {
		s.usage = complianceStore.NewRedis(in.redis.Client)
	}
	return s
}

func buildApp(cfg config.Config, in *infra, m *metrics.Metrics, log *slog.Logger) (*app, error) {
	reg := m.Registry()
	st := selectStores(in)

	auditOpts := []compliance.Option{
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics(reg)),
	}
	if in.producer != nil {
		in.stream = stream.New(in.producer,
			stream.WithLogger(log),
			stream.WithMetrics(stream.NewMetrics(reg)),
			stream.WithInterval(cfg.Kafka.FlushInterval),
			stream.WithBreaker(circuit.New("event-stream",
				circuit.WithFailureThreshold(cfg.Router.BreakerThreshold),
				circuit.WithCooldown(cfg.Router.BreakerCooldown),
			)),
		)
		auditOpts = append(auditOpts, compliance.WithForwarder(in.stream))
	}
	auditor := compliance.New(st.events, auditOpts...)

	kyc, err := kycService.New(st.accounts, auditor,
		kycService.WithLogger(log),
		kycService.WithEventReader(st.events),
	)
	if err != nil {
		return nil, err
	}

	tm := tokenMetrics.New(reg)
	var (
		ledgerList []*tokenService.Ledger
		routed     []routerService.TokenLedger
	)
	for _, raw := range cfg.Custody.Tokens {
		symbol, err := id.ParseTokenSymbol(raw)
		if err != nil {
			return nil, fmt.Errorf("token %q: %w", raw, err)
		}
		ledger, err := tokenService.New(symbol, st.ledger, kyc, auditor,
			tokenService.WithLogger(log),
			tokenService.WithMetrics(tm),
			tokenService.WithRouterPrincipal(cfg.Custody.RouterPrincipal),
		)
		if err != nil {
			return nil, err
		}
		ledgerList = append(ledgerList, ledger)
		routed = append(routed, ledger)
	}
	ledgers, err := tokenService.NewLedgers(ledgerList...)
	if err != nil {
		return nil, err
	}

	network, err := id.NetworkParams(cfg.Custody.BitcoinNetwork)
	if err != nil {
		return nil, err
	}
	reserve, err := reserveService.New(st.reserve, ledgers, auditor,
		reserveService.WithLogger(log),
		reserveService.WithMetrics(reserveMetrics.New(reg)),
		reserveService.WithTx(st.tx),
		reserveService.WithNetwork(network),
		reserveService.WithMinConfirmations(cfg.Custody.MinConfirmations),
		reserveService.WithMinReserveRatio(cfg.Custody.MinReserveRatio),
		reserveService.WithProofKeyLabel(cfg.Custody.ProofKey),
	)
	if err != nil {
		return nil, err
	}

	limits, err := complianceService.New(st.usage, kyc, auditor,
		complianceService.WithLogger(log),
		complianceService.WithMetrics(complianceMetrics.New(reg)),
	)
	if err != nil {
		return nil, err
	}

	router, err := routerService.New(st.operations, kyc, reserve, limits, routed, auditor,
		routerService.WithLogger(log),
		routerService.WithMetrics(routerMetrics.New(reg)),
		routerService.WithConfig(&routerService.Config{
			Retry: retry.Policy{
				Attempts: cfg.Router.CallAttempts,
				Timeout:  cfg.Router.CallTimeout,
				Delay:    cfg.Router.CallDelay,
			},
			BreakerFailures: cfg.Router.BreakerThreshold,
			BreakerCooldown: cfg.Router.BreakerCooldown,
			RouterPrincipal: cfg.Custody.RouterPrincipal,
		}),
	)
	if err != nil {
		return nil, err
	}

	return &app{
		reserve:        reserve,
		router:         router,
		kycHTTP:        kycHandler.New(kyc, log),
		tokenHTTP:      tokenHandler.New(ledgers, log),
		reserveHTTP:    reserveHandler.New(reserve, log),
		complianceHTTP: complianceHandler.New(limits, log),
		routerHTTP:     routerHandler.New(router, log),
	}, nil
}
