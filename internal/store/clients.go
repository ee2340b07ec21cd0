package store

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"github.com/mininik08inv/bookstore/internal/db"
)

// UpsertCity creates the city or updates its delivery latency.
func (s *Store) UpsertCity(ctx context.Context, name string, deliveryDays int) (*db.City, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "city name", Value: name, Reason: "must not be blank"}
	}
	if deliveryDays < 1 {
		return nil, &ValidationError{Field: "delivery_days", Value: deliveryDays, Reason: "must be at least 1"}
	}

	var city db.City
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("name_city = ?", name).Take(&city).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			city = db.City{NameCity: name, DeliveryDays: deliveryDays}
			return tx.Create(&city).Error
		}
		if err != nil {
			return err
		}
		city.DeliveryDays = deliveryDays
		return tx.Model(&db.City{}).
			Where("city_id = ?", city.CityID).
			Update("delivery_days", deliveryDays).Error
	})
	if err != nil {
		return nil, err
	}
	return &city, nil
}

// UpsertClient creates or updates a client keyed by its unique email. The
// email is the natural key: an existing client's name and city are updated
// in place, the email itself never changes through this path.
func (s *Store) UpsertClient(ctx context.Context, name, email string, cityID *uint) (*db.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "client name", Value: name, Reason: "must not be blank"}
	}
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &ValidationError{Field: "email", Value: email, Reason: "not a valid address"}
	}

	var client db.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cityID != nil {
			var city db.City
			if err := tx.Where("city_id = ?", *cityID).Take(&city).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Entity: "city", ID: *cityID}
				}
				return err
			}
		}

		err := tx.Where("email = ?", email).Take(&client).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			client = db.Client{NameClient: name, Email: email, CityID: cityID}
			if err := tx.Create(&client).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return &ConflictError{Entity: "client", Field: "email", Value: email,
						Reason: "already registered to another client"}
				}
				return err
			}
			return nil
		}
		if err != nil {
			return err
		}

		client.NameClient = name
		client.CityID = cityID
		return tx.Model(&db.Client{}).
			Where("client_id = ?", client.ClientID).
			Updates(map[string]any{
				"name_client": name,
				"city_id":     cityID,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Uint("client_id", client.ClientID).Str("email", email).Msg("client upserted")
	return &client, nil
}

// DeleteCity removes a city unless any client still references it.
func (s *Store) DeleteCity(ctx context.Context, cityID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&db.Client{}).Where("city_id = ?", cityID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &ConflictError{Entity: "city", Field: "city_id", Value: cityID,
				Reason: fmt.Sprintf("referenced by %d clients", n)}
		}
		res := tx.Delete(&db.City{}, "city_id = ?", cityID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "city", ID: cityID}
		}
		return nil
	})
}
