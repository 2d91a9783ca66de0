package anpr

import (
	"time"
)

type Category string

const (
	CategoryMercosulCar  Category = "MERCOSUL_CAR"
	CategoryMercosulMoto Category = "MERCOSUL_MOTO"
	CategoryLegacyCar    Category = "LEGACY_CAR"
	CategoryLegacyMoto   Category = "LEGACY_MOTO"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryMercosulCar, CategoryMercosulMoto, CategoryLegacyCar, CategoryLegacyMoto:
		return true
	}
	return false
}

// IsMoto reports whether the category was built from a two-line combination.
func (c Category) IsMoto() bool {
	return c == CategoryMercosulMoto || c == CategoryLegacyMoto
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon holds the four corners of a text region, clockwise from top-left.
type Polygon [4]Point

// Bounds returns the axis-aligned box enclosing the polygon.
func (p Polygon) Bounds() (minX, minY, maxX, maxY float64) {
	minX, minY = p[0].X, p[0].Y
	maxX, maxY = p[0].X, p[0].Y
	for _, pt := range p[1:] {
		if pt.X < minX {
			minX = pt.X
		}
		if pt.Y < minY {
			minY = pt.Y
		}
		if pt.X > maxX {
			maxX = pt.X
		}
		if pt.Y > maxY {
			maxY = pt.Y
		}
	}
	return minX, minY, maxX, maxY
}

// RectPolygon builds a polygon from an axis-aligned box.
func RectPolygon(minX, minY, maxX, maxY float64) Polygon {
	return Polygon{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}
}

// Fragment is one text region returned by the OCR engine for a frame.
type Fragment struct {
	Text       string  `json:"text"`
	Polygon    Polygon `json:"polygon"`
	Confidence float64 `json:"confidence"`
}

type Candidate struct {
	Plate      string   `json:"plate"`
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Anchor     Polygon  `json:"anchor"`
}

// Detection is a candidate observed in a frame. NewlyAccepted is false when
// the plate is still inside its cooldown window.
type Detection struct {
	Candidate
	NewlyAccepted bool  `json:"newly_accepted"`
	Fragments     []int `json:"fragments"`
}

type DetectionRecord struct {
	Plate       string
	Category    Category
	Confidence  float64
	FrameNumber int64
	Source      string
	SessionID   string
	ImagePath   string
	Fragments   []Fragment
	DetectedAt  time.Time
}

// DetectionEvent is published for every newly accepted detection.
type DetectionEvent struct {
	ID          string    `json:"id"`
	AccessID    int64     `json:"access_id"`
	Plate       string    `json:"plate"`
	Category    Category  `json:"category"`
	Confidence  float64   `json:"confidence"`
	Known       bool      `json:"known"`
	Source      string    `json:"source"`
	SessionID   string    `json:"session_id"`
	FrameNumber int64     `json:"frame_number"`
	ImagePath   string    `json:"image_path,omitempty"`
	Alerts      []Alert   `json:"alerts,omitempty"`
	DetectedAt  time.Time `json:"detected_at"`
}

type Owner struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	CPF        string    `json:"cpf,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Kind       string    `json:"kind"`
	Authorized bool      `json:"authorized"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Vehicle struct {
	ID            int64     `json:"id"`
	Plate         string    `json:"plate"`
	PlateCategory Category  `json:"plate_category"`
	OwnerID       *int64    `json:"owner_id,omitempty"`
	Make          string    `json:"make,omitempty"`
	Model         string    `json:"model,omitempty"`
	Color         string    `json:"color,omitempty"`
	Kind          string    `json:"kind"`
	Flagged       bool      `json:"flagged"`
	FlagReason    string    `json:"flag_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// VehicleRecord is a registered vehicle joined with its owner, if any.
type VehicleRecord struct {
	Vehicle
	Owner *Owner `json:"owner,omitempty"`
}

// OwnerAuthorized treats vehicles without an owner as authorized.
func (r *VehicleRecord) OwnerAuthorized() bool {
	return r.Owner == nil || r.Owner.Authorized
}

type Access struct {
	ID          int64      `json:"id"`
	VehicleID   *int64     `json:"vehicle_id,omitempty"`
	Plate       string     `json:"plate"`
	Category    Category   `json:"category"`
	EventKind   string     `json:"event_kind"`
	Confidence  float64    `json:"confidence"`
	FrameNumber int64      `json:"frame_number"`
	Source      string     `json:"source"`
	SessionID   string     `json:"session_id,omitempty"`
	ImagePath   string     `json:"image_path,omitempty"`
	Fragments   []Fragment `json:"fragments,omitempty"`
	DetectedAt  time.Time  `json:"detected_at"`
}

// ProcessResult is what recording a detection produced.
type ProcessResult struct {
	Access  Access         `json:"access"`
	Vehicle *VehicleRecord `json:"vehicle,omitempty"`
	Alerts  []Alert        `json:"alerts,omitempty"`
}

type Alert struct {
	ID        int64     `json:"id"`
	VehicleID *int64    `json:"vehicle_id,omitempty"`
	Plate     string    `json:"plate"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}

type Operator struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	OwnerParticular = "PARTICULAR"
	OwnerOfficial   = "OFICIAL"

	VehicleCar   = "CARRO"
	VehicleMoto  = "MOTO"
	VehicleTruck = "CAMINHAO"
	VehicleOther = "OUTRO"

	EventDetected = "DETECTADO"

	AlertFlaggedVehicle = "VEICULO_MARCADO"
	AlertUnauthorized   = "NAO_AUTORIZADO"

	RoleAdmin    = "ADMIN"
	RoleOperator = "OPERATOR"
	RoleViewer   = "VIEWER"
)

type AccessFilter struct {
	Plate    string
	Category Category
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

type AccessUpdate struct {
	Plate      *string  `json:"plate"`
	Category   *string  `json:"category"`
	Confidence *float64 `json:"confidence"`
}

type TodayStats struct {
	Total        int64    `json:"total" yaml:"total"`
	UniquePlates []string `json:"unique_plates" yaml:"unique_plates"`
}

type PlateSighting struct {
	Plate      string    `json:"plate" yaml:"plate"`
	Category   Category  `json:"category" yaml:"category"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	LastSeen   time.Time `json:"last_seen" yaml:"last_seen"`
	Count      int64     `json:"count" yaml:"count"`
}

type DailyReport struct {
	Day        string           `json:"day" yaml:"day"`
	Total      int64            `json:"total" yaml:"total"`
	ByCategory map[string]int64 `json:"by_category" yaml:"by_category"`
	BySource   map[string]int64 `json:"by_source" yaml:"by_source"`
	Plates     []PlateSighting  `json:"plates" yaml:"plates"`
}
