package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/internal/repo"
	"github.com/Skotchmaster/radiant_bloom/internal/transport"
)

type AnalyticsService struct {
	Repo   *repo.GormRepo
	Orders *OrderService
}

func NewAnalyticsService(r *repo.GormRepo, orders *OrderService) *AnalyticsService {
	return &AnalyticsService{Repo: r, Orders: orders}
}

// Dashboard summarises orders in [from, to] alongside catalog and customer counts.
func (s *AnalyticsService) Dashboard(ctx context.Context, from, to *time.Time) (*transport.Dashboard, error) {
	stats, err := s.Orders.Stats(ctx, from, to)
	if err != nil {
		return nil, err
	}
	customers, err := s.Repo.CountUsers(ctx, models.RoleUser)
	if err != nil {
		return nil, err
	}
	products, err := s.Repo.CountProducts(ctx)
	if err != nil {
		return nil, err
	}
	low, err := s.Repo.CountLowStock(ctx)
	if err != nil {
		return nil, err
	}
	return &transport.Dashboard{
		Orders:           stats,
		TotalCustomers:   customers,
		TotalProducts:    products,
		LowStockProducts: low,
	}, nil
}
