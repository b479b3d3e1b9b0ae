// Package httpapi exposes the REST surface: auth, session lifecycle,
// orders, menu, payments, coupons, and receipts. Handlers translate
// between JSON and the domain services and map sentinel errors onto
// status codes; all business rules live below this layer.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"timecafe-be/internal/clock"
	"timecafe-be/internal/coupon"
	"timecafe-be/internal/logger"
	"timecafe-be/internal/menu"
	"timecafe-be/internal/order"
	"timecafe-be/internal/payment"
	"timecafe-be/internal/receipt"
	"timecafe-be/internal/session"
	"timecafe-be/internal/user"
	"timecafe-be/internal/utils"

	"go.uber.org/zap"
)

type Handler struct {
	users    user.Service
	sessions session.Service
	orders   order.Service
	menu     menu.Repository
	payments payment.Service
	coupons  coupon.Service
	clk      clock.Clock
}

func NewHandler(
	users user.Service,
	sessions session.Service,
	orders order.Service,
	menuRepo menu.Repository,
	payments payment.Service,
	coupons coupon.Service,
	clk clock.Clock,
) *Handler {
	return &Handler{
		users:    users,
		sessions: sessions,
		orders:   orders,
		menu:     menuRepo,
		payments: payments,
		coupons:  coupons,
		clk:      clk,
	}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("GET /api/auth/me", h.me)

	mux.HandleFunc("POST /api/sessions/check-in", h.checkIn)
	mux.HandleFunc("POST /api/sessions/{id}/check-out", h.checkOut)
	mux.HandleFunc("GET /api/sessions/active", h.activeSession)
	mux.HandleFunc("GET /api/sessions/history", h.sessionHistory)
	mux.HandleFunc("GET /api/sessions/{id}/receipt", h.sessionReceipt)

	mux.HandleFunc("POST /api/sessions/{id}/orders", h.placeOrder)
	mux.HandleFunc("GET /api/sessions/{id}/orders", h.sessionOrders)
	mux.HandleFunc("GET /api/sessions/{id}/orders/subtotal", h.orderSubtotal)

	mux.HandleFunc("GET /api/menu", h.listMenu)

	mux.HandleFunc("POST /api/payments/intent", h.createPaymentIntent)
	mux.HandleFunc("POST /api/payments/{id}/confirm", h.confirmPayment)

	mux.HandleFunc("GET /api/coupons", h.listCoupons)
	mux.HandleFunc("POST /api/coupons/{id}/redeem", h.redeemCoupon)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

// --- auth ---

type registerRequest struct {
	Username    string  `json:"username"`
	Password    string  `json:"password"`
	FullName    string  `json:"full_name"`
	Email       string  `json:"email"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
}

type authResponse struct {
	User  *userView `json:"user"`
	Token string    `json:"token"`
}

type userView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "username, password and email are required")
		return
	}

	u, token, err := h.users.Register(r.Context(), user.RegisterInput{
		Username:    req.Username,
		Password:    req.Password,
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	setAuthCookie(w, token)
	writeJSON(w, http.StatusCreated, authResponse{User: toUserView(u), Token: token})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, token, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.maybeIssueBirthdayCoupon(r.Context(), u)

	setAuthCookie(w, token)
	writeJSON(w, http.StatusOK, authResponse{User: toUserView(u), Token: token})
}

// maybeIssueBirthdayCoupon grants the birthday coupon on a login that
// falls on the user's birthday, at most one per window. Best effort: a
// failure here never blocks the login.
func (h *Handler) maybeIssueBirthdayCoupon(ctx context.Context, u *user.User) {
	if u.DateOfBirth == nil {
		return
	}
	dob, err := time.Parse("2006-01-02", *u.DateOfBirth)
	if err != nil {
		return
	}

	now := h.clk.Now()
	if dob.Month() != now.Month() || dob.Day() != now.Day() {
		return
	}

	active, err := h.coupons.ListActive(ctx, u.ID)
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to list coupons for birthday grant", zap.Error(err))
		return
	}
	for _, c := range active {
		if c.Type == coupon.TypeBirthday {
			return
		}
	}

	if _, err := h.coupons.IssueBirthdayCoupon(ctx, u.ID); err != nil {
		logger.FromCtx(ctx).Warn("failed to issue birthday coupon", zap.Error(err))
	}
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(u))
}

func toUserView(u *user.User) *userView {
	return &userView{ID: u.ID, Username: u.Username, FullName: u.FullName, Email: u.Email}
}

func setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((24 * time.Hour).Seconds()),
	})
}

// --- sessions ---

type checkInRequest struct {
	TableNumber *string `json:"table_number,omitempty"`
}

type sessionView struct {
	ID           int64      `json:"id"`
	TableNumber  *string    `json:"table_number,omitempty"`
	CheckInTime  time.Time  `json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
	TotalTime    *int       `json:"total_time_seconds,omitempty"`
	TotalCost    *int       `json:"total_cost,omitempty"`
	Status       string     `json:"status"`
}

func toSessionView(s *session.Session) *sessionView {
	return &sessionView{
		ID:           s.ID,
		TableNumber:  s.TableNumber,
		CheckInTime:  s.CheckInTime,
		CheckOutTime: s.CheckOutTime,
		TotalTime:    s.TotalTime,
		TotalCost:    s.TotalCost,
		Status:       string(s.Status),
	}
}

func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req checkInRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	sess, err := h.sessions.CheckIn(r.Context(), userID, req.TableNumber)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionView(sess))
}

func (h *Handler) checkOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}

	sess, err := h.sessions.CheckOut(r.Context(), sessionID, userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) activeSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sess, err := h.sessions.GetActiveSession(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) sessionHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sessions, err := h.sessions.History(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	views := make([]*sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, toSessionView(s))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) sessionReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}

	sess, err := h.sessions.GetSession(r.Context(), sessionID, userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	// Receipts show settled consumption only; pending orders are still
	// part of the running session, not the bill on paper.
	completed, err := h.orders.ListForSession(r.Context(), sessionID, userID, order.FilterCompleted)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, receipt.Build(sess, completed, h.clk.Now()))
}

// --- orders ---

type placeOrderRequest struct {
	Items []struct {
		MenuItemID int64 `json:"menu_item_id"`
		Quantity   int   `json:"quantity"`
	} `json:"items"`
}

type orderView struct {
	ID        int64           `json:"id"`
	SessionID int64           `json:"session_id"`
	OrderTime time.Time       `json:"order_time"`
	Status    string          `json:"status"`
	TotalCost int             `json:"total_cost"`
	Items     []orderItemView `json:"items"`
}

type orderItemView struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int   `json:"quantity"`
	Price      int   `json:"price"`
}

func toOrderView(o *order.Order) *orderView {
	v := &orderView{
		ID:        o.ID,
		SessionID: o.SessionID,
		OrderTime: o.OrderTime,
		Status:    string(o.Status),
		TotalCost: o.TotalCost,
		Items:     make([]orderItemView, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		v.Items = append(v.Items, orderItemView{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Price:      item.Price,
		})
	}
	return v
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items := make([]order.ItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, order.ItemRequest{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}

	o, err := h.orders.PlaceOrder(r.Context(), sessionID, userID, items)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderView(o))
}

func (h *Handler) sessionOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}
	filter, ok := statusFilter(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListForSession(r.Context(), sessionID, userID, filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	views := make([]*orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) orderSubtotal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}
	filter, ok := statusFilter(w, r)
	if !ok {
		return
	}

	subtotal, err := h.orders.GetOrderSubtotal(r.Context(), sessionID, userID, filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"subtotal": subtotal})
}

func statusFilter(w http.ResponseWriter, r *http.Request) (order.StatusFilter, bool) {
	switch q := r.URL.Query().Get("status"); q {
	case "", "all":
		return order.FilterAll, true
	case "pending":
		return order.FilterPending, true
	case "completed":
		return order.FilterCompleted, true
	default:
		writeError(w, http.StatusBadRequest, "invalid status filter")
		return "", false
	}
}

// --- menu ---

type menuItemView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Price       int     `json:"price"`
	ImageURL    *string `json:"image_url,omitempty"`
	Available   bool    `json:"available"`
}

func (h *Handler) listMenu(w http.ResponseWriter, r *http.Request) {
	var (
		items []*menu.Item
		err   error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		items, err = h.menu.ListByCategory(r.Context(), category)
	} else {
		items, err = h.menu.List(r.Context())
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	views := make([]menuItemView, 0, len(items))
	for _, item := range items {
		views = append(views, menuItemView{
			ID:          item.ID,
			Name:        item.Name,
			Category:    item.Category,
			Description: item.Description,
			Price:       item.Price,
			ImageURL:    item.ImageURL,
			Available:   item.Available,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// --- payments ---

type createIntentRequest struct {
	SessionID int64 `json:"session_id"`
}

type intentResponse struct {
	PaymentID    int64  `json:"payment_id"`
	Amount       int    `json:"amount"`
	ClientSecret string `json:"client_secret"`
}

func (h *Handler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createIntentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.payments.CreateIntent(r.Context(), req.SessionID, userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, intentResponse{
		PaymentID:    result.Payment.ID,
		Amount:       result.Payment.Amount,
		ClientSecret: result.ClientSecret,
	})
}

type confirmPaymentRequest struct {
	ChargeRef string `json:"charge_ref"`
}

type paymentView struct {
	ID          int64     `json:"id"`
	SessionID   int64     `json:"session_id"`
	Amount      int       `json:"amount"`
	Status      string    `json:"status"`
	Method      string    `json:"method"`
	PaymentTime time.Time `json:"payment_time"`
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req confirmPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.payments.Confirm(r.Context(), paymentID, userID, req.ChargeRef)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentView{
		ID:          p.ID,
		SessionID:   p.SessionID,
		Amount:      p.Amount,
		Status:      string(p.Status),
		Method:      p.Method,
		PaymentTime: p.PaymentTime,
	})
}

// --- coupons ---

type couponView struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Code       string    `json:"code"`
	Value      int       `json:"value"`
	ExpiryDate time.Time `json:"expiry_date"`
	IsUsed     bool      `json:"is_used"`
}

func toCouponView(c *coupon.Coupon) couponView {
	return couponView{
		ID:         c.ID,
		Type:       string(c.Type),
		Code:       c.Code,
		Value:      c.Value,
		ExpiryDate: c.ExpiryDate,
		IsUsed:     c.IsUsed,
	}
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	coupons, err := h.coupons.ListActive(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	views := make([]couponView, 0, len(coupons))
	for _, c := range coupons {
		views = append(views, toCouponView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) redeemCoupon(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	couponID, ok := pathID(w, r)
	if !ok {
		return
	}

	c, err := h.coupons.Redeem(r.Context(), couponID, userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponView(c))
}

// --- plumbing ---

func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return 0, false
	}
	return userID, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps sentinel errors onto status codes. Anything
// unrecognized is a 500 with a generic body; the real error goes to the
// log only.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrUsernameExists),
		errors.Is(err, user.ErrEmailExists),
		errors.Is(err, session.ErrActiveSessionExists):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, user.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, order.ErrSessionNotFound),
		errors.Is(err, payment.ErrSessionNotFound),
		errors.Is(err, payment.ErrPaymentNotFound),
		errors.Is(err, menu.ErrItemNotFound),
		errors.Is(err, coupon.ErrCouponNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, session.ErrNotSessionOwner),
		errors.Is(err, order.ErrNotSessionOwner),
		errors.Is(err, payment.ErrNotSessionOwner),
		errors.Is(err, payment.ErrNotPaymentOwner):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, session.ErrSessionNotActive),
		errors.Is(err, order.ErrNoActiveSession),
		errors.Is(err, order.ErrSessionEnded),
		errors.Is(err, payment.ErrSessionNotCompleted),
		errors.Is(err, payment.ErrChargeNotSettled),
		errors.Is(err, coupon.ErrCouponSpent):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, menu.ErrItemUnavailable),
		errors.Is(err, payment.ErrNoPaymentMethod):
		writeError(w, http.StatusBadRequest, err.Error())

	default:
		logger.FromCtx(r.Context()).Error("unhandled error",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
