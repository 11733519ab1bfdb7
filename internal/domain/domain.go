package domain

const (
	RoleUser   = "user"
	RoleLeader = "leader"
	RoleAdmin  = "admin"
)

// DefaultSector is used for items created by users without a sector.
const DefaultSector = "GERAL"

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role" enum:"user,leader,admin"`
	Sector       string `json:"sector,omitempty"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

type Leader struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type CatalogEntry struct {
	Code        string `json:"codigo"`
	Description string `json:"descricao"`
	Type        string `json:"tipo,omitempty"`
	Unit        string `json:"unidade,omitempty"`
	Barcode     string `json:"cod_barras,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	Sector      string `json:"sector,omitempty"`
	CreatedAt   string `json:"created_at,omitempty" format:"date-time"`
}

// InventoryItem is one physical count record. Status, Discrepancy and
// NextAction are always the reconciliation of Counts under UsedScale.
type InventoryItem struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Sector      string    `json:"sector"`
	Code        string    `json:"codigo"`
	Description string    `json:"descricao"`
	Type        string    `json:"tipo"`
	SystemUnit  string    `json:"unidade_sistema"`
	Barcode     string    `json:"cod_barras"`
	Digitizer   string    `json:"digitador_nome"`
	TeamLeader  string    `json:"lider_equipe"`
	Warehouse   string    `json:"armazem"`
	LabelCode   string    `json:"codigo_etiqueta"`
	CountUnit   string    `json:"unidade_contagem"`
	UsedScale   bool      `json:"usou_balanca"`
	Counts      []float64 `json:"contagens"`
	Discrepancy float64   `json:"diferenca"`
	Status      string    `json:"status" enum:"PENDING,IN_PROGRESS,COUNTED,NEEDS_REVIEW"`
	NextAction  string    `json:"proxima_acao"`
	CreatedAt   string    `json:"created_at" format:"date-time"`
	UpdatedAt   string    `json:"updated_at" format:"date-time"`
}

type DigitizerStats struct {
	Digitizer   string `json:"digitador_nome"`
	Total       int    `json:"total"`
	Counted     int    `json:"counted"`
	NeedsReview int    `json:"needs_review"`
}

type StatusSummary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}
