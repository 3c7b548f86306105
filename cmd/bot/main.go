package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/database"
	"solana-trade-bot-go/internal/executor"
	"solana-trade-bot-go/internal/logger"
	"solana-trade-bot-go/internal/market"
	"solana-trade-bot-go/internal/models"
	"solana-trade-bot-go/internal/oracle"
	"solana-trade-bot-go/internal/policy"
	"solana-trade-bot-go/internal/ratecache"
	"solana-trade-bot-go/internal/retry"
	"solana-trade-bot-go/internal/risk"
	"solana-trade-bot-go/internal/solana"
	"solana-trade-bot-go/internal/trader"
	"solana-trade-bot-go/internal/txmonitor"
)

func main() {
	// Secrets (wallet key) come from the environment; .env is optional.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}
	if key := os.Getenv("WALLET_PRIVATE_KEY"); key != "" {
		cfg.Wallet.PrivateKey = key
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Configuration/initialization errors are the only fatal ones.
	if cfg.Wallet.PrivateKey == "" {
		log.Fatal("Wallet private key is not set (WALLET_PRIVATE_KEY)")
	}
	if !solana.IsValidAddress(cfg.Wallet.Address) {
		log.Fatal("Wallet address is invalid, trading cannot begin",
			zap.String("address", cfg.Wallet.Address))
	}

	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	var assets []string
	var tracked []models.TrackedAsset
	if err := db.Where("enabled = ?", true).Find(&tracked).Error; err != nil {
		log.Fatal("Failed to load tracked assets", zap.Error(err))
	}
	for _, a := range tracked {
		assets = append(assets, a.Address)
	}
	if len(assets) == 0 {
		log.Fatal("No tracked assets configured (trading.assets)")
	}

	// One cache per logical channel so price, social and RPC spacing are
	// independent.
	cacheTTL := time.Duration(cfg.RateLimit.CacheTTL) * time.Second
	priceCache := ratecache.New[*oracle.PairData](cfg.RateLimit.PriceRPS, 1)
	socialCache := ratecache.New[float64](cfg.RateLimit.SocialRPS, 1)
	solPriceCache := ratecache.New[float64](cfg.RateLimit.PriceRPS, 1)

	prices := oracle.NewDexScreenerClient(cfg.Oracles.DexScreenerURL, log)
	sentiment := oracle.NewSentimentClient(cfg.Oracles.SentimentURL, log)
	coingecko := oracle.NewCoinGeckoClient(cfg.Oracles.CoinGeckoURL, log)
	rpc := solana.NewClient(cfg.Solana.RPCURL, log)

	gateway := market.NewGateway(prices, sentiment, priceCache, socialCache, cacheTTL, log)
	riskMgr := risk.NewManager(
		cfg.Trading.AccountValueUSD,
		cfg.Trading.StopLossFraction,
		coingecko, solPriceCache, cacheTTL, log)

	engine := policy.NewEngine(policy.Params{
		LearningRate:   cfg.Policy.LearningRate,
		DiscountFactor: cfg.Policy.DiscountFactor,
		EpsilonDecay:   cfg.Policy.EpsilonDecay,
		EpsilonFloor:   cfg.Policy.EpsilonFloor,
		TableCap:       cfg.Policy.TableCap,
		BuyDivisor:     cfg.Policy.BuyDivisor,
		SellDivisor:    cfg.Policy.SellDivisor,
		HoldDivisor:    cfg.Policy.HoldDivisor,
	}, log)

	retryPolicy := retry.Policy{
		MaxAttempts: cfg.RateLimit.MaxAttempts,
		BaseDelay:   time.Duration(cfg.RateLimit.BaseDelayMS) * time.Millisecond,
	}
	exec := executor.NewGateway(
		cfg.Jupiter.APIURL, rpc, cfg.Wallet.Address,
		cfg.Trading.SlippageTolerance, retryPolicy, log)

	alerter := log.Named("alert")
	monitor := txmonitor.NewMonitor(rpc, cfg.RateLimit.RPCRPS, cfg.RateLimit.ConfirmTries,
		time.Duration(cfg.RateLimit.BaseDelayMS)*time.Millisecond,
		func(msg string) { alerter.Error(msg) }, log)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Restore the learned policy if one was persisted; otherwise bootstrap
	// it per asset with live-read training episodes.
	saved, err := database.LoadPolicy(db)
	if err != nil {
		log.Fatal("Failed to load policy state", zap.Error(err))
	}
	if len(saved) > 0 {
		engine.Restore(saved)
		log.Info("Restored persisted policy", zap.Int("entries", len(saved)))
	} else {
		trainTick := time.Duration(cfg.Policy.TrainTickSeconds) * time.Second
		for _, asset := range assets {
			if err := engine.Train(ctx, gateway, asset, cfg.Policy.TrainEpisodes, trainTick); err != nil {
				log.Warn("Policy training failed for asset, continuing",
					zap.String("asset", asset), zap.Error(err))
			}
		}
	}
	// Live trading exploits; exploration belongs to the bootstrap phase.
	engine.EndExploration()

	supervisor := trader.NewSupervisor(log, &cfg, assets, gateway, engine, riskMgr, exec, monitor)
	supervisor.Run(ctx)

	if err := database.SavePolicy(db, engine.Snapshot()); err != nil {
		log.Error("Failed to persist policy state", zap.Error(err))
	} else {
		log.Info("Policy state persisted")
	}

	log.Info("Bot has been shut down.")
}
