package server

import (
	"recount/internal/domain"
	"recount/internal/reconcile"
)

// Request payloads

type RegisterRequest struct {
	Name     string `json:"name" minLength:"1"`
	Email    string `json:"email" minLength:"3"`
	Password string `json:"password" minLength:"1"`
	Role     string `json:"role,omitempty" enum:"user,leader,admin"`
	Sector   string `json:"sector,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateCatalogRequest struct {
	Code        string `json:"codigo"`
	Description string `json:"descricao"`
	Type        string `json:"tipo,omitempty"`
	Unit        string `json:"unidade,omitempty"`
	Barcode     string `json:"cod_barras,omitempty"`
}

// Count slots arrive as numbers, numeric strings, blanks or null; anything
// else reads as an empty slot.

type SubmitItemRequest struct {
	Code        string `json:"codigo"`
	Description string `json:"descricao,omitempty"`
	Type        string `json:"tipo,omitempty"`
	SystemUnit  string `json:"unidade_sistema,omitempty"`
	Barcode     string `json:"cod_barras,omitempty"`
	Digitizer   string `json:"digitador_nome,omitempty"`
	TeamLeader  string `json:"lider_equipe,omitempty"`
	Warehouse   string `json:"armazem,omitempty"`
	LabelCode   string `json:"codigo_etiqueta,omitempty"`
	CountUnit   string `json:"unidade_contagem"`
	UsedScale   bool   `json:"usou_balanca,omitempty"`
	Counts      []any  `json:"contagens,omitempty"`
}

type UpdateItemRequest struct {
	TeamLeader string `json:"lider_equipe,omitempty"`
	Warehouse  string `json:"armazem,omitempty"`
	LabelCode  string `json:"codigo_etiqueta,omitempty"`
	CountUnit  string `json:"unidade_contagem,omitempty"`
	UsedScale  bool   `json:"usou_balanca,omitempty"`
	Counts     []any  `json:"contagens,omitempty"`
}

type ReconcileRequest struct {
	UsedScale bool  `json:"usou_balanca,omitempty"`
	Counts    []any `json:"contagens"`
}

// Responses

type TokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at" format:"date-time"`
	User      domain.User `json:"user"`
}

type ItemResponse struct {
	domain.InventoryItem
	Slots []*float64 `json:"slots"`
}

type ItemList struct {
	Items      []ItemResponse `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type ReconcileResponse struct {
	Status      string     `json:"status" enum:"PENDING,IN_PROGRESS,COUNTED,NEEDS_REVIEW"`
	Discrepancy float64    `json:"diferenca"`
	NextAction  string     `json:"proxima_acao"`
	Counts      []float64  `json:"contagens"`
	Slots       []*float64 `json:"slots"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func seriesFromAny(values []any) reconcile.Series {
	out := make(reconcile.Series, 0, len(values))
	for _, v := range values {
		switch t := v.(type) {
		case float64:
			out = append(out, reconcile.Value(t))
		case int:
			out = append(out, reconcile.Value(float64(t)))
		case int64:
			out = append(out, reconcile.Value(float64(t)))
		case string:
			out = append(out, reconcile.ParseSlot(t))
		default:
			out = append(out, reconcile.Empty())
		}
	}
	return out
}

func slotPointers(s reconcile.Series) []*float64 {
	out := make([]*float64, 0, len(s))
	for _, slot := range s {
		if v, ok := slot.Float(); ok {
			out = append(out, &v)
			continue
		}
		out = append(out, nil)
	}
	return out
}

func itemResponse(it domain.InventoryItem) ItemResponse {
	if it.Counts == nil {
		it.Counts = []float64{}
	}
	r := reconcile.Result{Status: reconcile.Status(it.Status), Discrepancy: it.Discrepancy, NextAction: it.NextAction}
	return ItemResponse{InventoryItem: it, Slots: slotPointers(reconcile.EditableSlots(it.Counts, r))}
}

func mapItems(items []domain.InventoryItem) []ItemResponse {
	res := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		res = append(res, itemResponse(it))
	}
	return res
}

func reconcileResponse(slots reconcile.Series, r reconcile.Result) ReconcileResponse {
	counts := slots.Valid()
	if counts == nil {
		counts = []float64{}
	}
	return ReconcileResponse{
		Status:      string(r.Status),
		Discrepancy: r.Discrepancy,
		NextAction:  r.NextAction,
		Counts:      counts,
		Slots:       slotPointers(reconcile.EditableSlots(counts, r)),
	}
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
