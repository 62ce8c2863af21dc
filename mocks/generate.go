package mocks

//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource DataSource
//go:generate mockgen -destination=./mock_recorder.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/recorder Recorder
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/rxtech-lab/argo-backtest/pkg/marketdata/provider Provider
