package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ownerdomain "github.com/hostwise/nightly/internal/owner/domain"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	"gorm.io/gorm"
)

const (
	demoOwnerEmail = "demo@nightly.local"
	demoOwnerName  = "Demo Host"
)

// EnsureDemoOwner seeds a demo owner with two sample properties so a fresh
// OSS install has something to price. Idempotent.
func EnsureDemoOwner(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := ensureDemoOwnerTx(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureDemoPropertiesTx(ctx, tx, node, owner.ID)
	})
}

func ensureDemoOwnerTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*ownerdomain.Owner, error) {
	var owner ownerdomain.Owner
	err := tx.WithContext(ctx).Where("email = ?", demoOwnerEmail).First(&owner).Error
	if err == nil {
		return &owner, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	owner = ownerdomain.Owner{
		ID:           node.Generate(),
		Email:        demoOwnerEmail,
		Name:         demoOwnerName,
		Currency:     "EUR",
		Language:     "en",
		Timezone:     "Europe/Lisbon",
		AccessStatus: ownerdomain.AccessActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&owner).Error; err != nil {
		return nil, err
	}
	return &owner, nil
}

func ensureDemoPropertiesTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, ownerID snowflake.ID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&propertydomain.Property{}).
		Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	samples := []propertydomain.Property{
		{
			ID:           node.Generate(),
			OwnerID:      ownerID,
			Name:         "Alfama Loft",
			Location:     "Lisbon",
			PropertyType: "apartment",
			Capacity:     4,
			Bedrooms:     2,
			Status:       propertydomain.StatusActive,
			Currency:     "EUR",
			Timezone:     "Europe/Lisbon",
			Tier:         propertydomain.TierBalanced,
			BasePrice:    120,
			FloorPrice:   80,
			CeilingPrice: 220,
			MinStay:      1,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:           node.Generate(),
			OwnerID:      ownerID,
			Name:         "Bairro Alto Studio",
			Location:     "Lisbon",
			PropertyType: "apartment",
			Capacity:     2,
			Bedrooms:     1,
			Status:       propertydomain.StatusActive,
			Currency:     "EUR",
			Timezone:     "Europe/Lisbon",
			Tier:         propertydomain.TierCautious,
			BasePrice:    90,
			FloorPrice:   60,
			CeilingPrice: 150,
			MinStay:      2,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
	return tx.WithContext(ctx).Create(&samples).Error
}
