package service

import (
	"context"
	"errors"
	"fmt"

	"essence-store/internal/model"
	"essence-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// recentOrders is the number of orders shown on the dashboard.
const recentOrders = 5

type adminService struct {
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	logger      zerolog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	logger zerolog.Logger,
) AdminService {
	return &adminService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		logger:      logger.With().Str("service", "admin").Logger(),
	}
}

func (s *adminService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	stats, err := s.orderRepo.Stats(ctx, recentOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

func (s *adminService) ListProducts(ctx context.Context, filter model.AdminProductFilter) ([]model.Product, error) {
	products, err := s.productRepo.ListAdmin(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *adminService) CreateProduct(ctx context.Context, in *model.ProductInput) (*model.Product, error) {
	if in == nil {
		return nil, model.NewValidationError("request body is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	product, err := s.productRepo.Create(ctx, *in)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (s *adminService) UpdateProduct(ctx context.Context, id uuid.UUID, in *model.ProductInput) (*model.Product, error) {
	if in == nil {
		return nil, model.NewValidationError("request body is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	product, err := s.productRepo.Update(ctx, id, *in)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}
	return product, nil
}

func (s *adminService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	found, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrProductInUse) {
			s.logger.Warn().Str("product_id", id.String()).Msg("refusing to delete ordered product")
			return err
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if !found {
		return model.ErrProductNotFound
	}

	s.logger.Info().Str("product_id", id.String()).Msg("product deleted")
	return nil
}

func (s *adminService) ListOrders(ctx context.Context, filter model.AdminOrderFilter) ([]model.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	orders, err := s.orderRepo.ListAdmin(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *adminService) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

func (s *adminService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	if !status.Valid() {
		return model.ErrInvalidStatus
	}

	found, err := s.orderRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if !found {
		return model.ErrOrderNotFound
	}

	s.logger.Info().Str("order_id", id.String()).Str("status", string(status)).Msg("order status updated")
	return nil
}
