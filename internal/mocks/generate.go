// Package mocks provides gomock mocks of the report service ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	fetcher := mocks.NewMockRateFetcher(ctrl)
//	fetcher.EXPECT().FetchTodayRates(gomock.Any()).Return(rates, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=rate_fetcher_mock.go github.com/cuongbtq/report-service/internal/report RateFetcher

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=enqueuer_mock.go github.com/cuongbtq/report-service/internal/report Enqueuer

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=artifact_store_mock.go github.com/cuongbtq/report-service/internal/artifact Store
