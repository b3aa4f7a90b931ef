package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/psds-microservice/delivery-service/internal/errs"
	"github.com/psds-microservice/delivery-service/internal/model"
)

type SQLGateway struct {
	db *gorm.DB
}

func NewSQLGateway(db *gorm.DB) *SQLGateway {
	return &SQLGateway{db: db}
}

func (s *SQLGateway) CreateTicket(ctx context.Context, t *model.Ticket) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *SQLGateway) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	var items []model.Ticket
	if err := s.db.WithContext(ctx).Order("created_at").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *SQLGateway) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	var t model.Ticket
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *SQLGateway) UpdateTicket(ctx context.Context, id string, u TicketUpdate) error {
	changes := map[string]interface{}{
		"customer_name": u.CustomerName,
		"email":         u.Email,
		"phone":         u.Phone,
		"description":   u.Description,
	}
	if u.replacesPhoto() {
		changes["photo_name"] = u.PhotoName
		changes["photo_path"] = u.PhotoPath
	}
	res := s.db.WithContext(ctx).Model(&model.Ticket{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrTicketNotFound
	}
	return nil
}

func (s *SQLGateway) DeleteTicket(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Ticket{}).Error
}

func (s *SQLGateway) Authenticate(ctx context.Context, username, password string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.AdminCredential{}).
		Where("username = ? AND password = ?", username, password).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLGateway) SaveAdmin(ctx context.Context, cred model.AdminCredential) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password"}),
	}).Create(&cred).Error
}

func (s *SQLGateway) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
