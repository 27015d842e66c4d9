package entity

import (
	"time"

	"github.com/google/uuid"
)

// Medication is a catalog entry keyed by its exact name. The descriptive
// fields are filled once, when the entry is first created, from the external
// drug API and stay nil when that lookup fails.
type Medication struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name           string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	BrandName      *string   `gorm:"type:varchar(255)" json:"brand_name"`
	GenericName    *string   `gorm:"type:varchar(255)" json:"generic_name"`
	Manufacturer   *string   `gorm:"type:varchar(255)" json:"manufacturer"`
	DosageForm     *string   `gorm:"type:varchar(255)" json:"dosage_form"`
	Route          *string   `gorm:"type:varchar(255)" json:"route"`
	SubstanceName  *string   `gorm:"type:varchar(255)" json:"substance_name"`
	PharmClass     *string   `gorm:"type:varchar(255)" json:"pharm_class"`
	KnownReactions *string   `gorm:"type:text" json:"known_reactions"`
	ExternalData   JSON      `gorm:"type:jsonb" json:"external_data,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Medication) TableName() string {
	return "medications"
}

// IsEnriched reports whether external data was attached
func (m *Medication) IsEnriched() bool {
	return len(m.ExternalData) > 0
}
