package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/payment"
	"github.com/iliyamo/hotel-room-booking/internal/policy"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

// ---- test doubles ----

type fakeHolds struct {
	mu    sync.Mutex
	ttl   time.Duration
	holds map[string]*model.Hold
}

func newFakeHolds() *fakeHolds {
	return &fakeHolds{ttl: 30 * time.Minute, holds: map[string]*model.Hold{}}
}

func (f *fakeHolds) TTL() time.Duration { return f.ttl }

func (f *fakeHolds) Save(_ context.Context, h *model.Hold) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *h
	f.holds[h.HoldKey] = &cp
	return nil
}

func (f *fakeHolds) Get(_ context.Context, key string) (*model.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.holds[key]
	if !ok {
		return nil, repository.ErrHoldNotFound
	}
	cp := *h
	return &cp, nil
}

func (f *fakeHolds) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.holds, key)
	return nil
}

func (f *fakeHolds) ExtendTTL(_ context.Context, key string) (*model.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.holds[key]
	if !ok {
		return nil, repository.ErrHoldNotFound
	}
	h.ExpiresAt = time.Now().UTC().Add(f.ttl)
	cp := *h
	return &cp, nil
}

type fakeOrders struct {
	mu    sync.Mutex
	codes map[int64]string
}

func newFakeOrders() *fakeOrders { return &fakeOrders{codes: map[int64]string{}} }

func (f *fakeOrders) Map(_ context.Context, orderCode int64, holdKey string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[orderCode] = holdKey
	return nil
}

func (f *fakeOrders) Resolve(_ context.Context, orderCode int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.codes[orderCode]
	if !ok {
		return "", repository.ErrHoldNotFound
	}
	return key, nil
}

func (f *fakeOrders) Delete(_ context.Context, orderCode int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.codes, orderCode)
	return nil
}

type fakeRooms struct {
	room     *model.Room
	roomType *model.RoomType
	periods  []model.RatePeriod
	services map[uint64]model.HotelService
}

func (f *fakeRooms) GetByID(_ context.Context, roomID uint64) (*model.Room, *model.RoomType, error) {
	if f.room == nil || f.room.ID != roomID {
		return nil, nil, repository.ErrRoomNotFound
	}
	return f.room, f.roomType, nil
}

func (f *fakeRooms) RatePeriods(_ context.Context, _ uint64, _, _ time.Time) ([]model.RatePeriod, error) {
	return f.periods, nil
}

func (f *fakeRooms) ServicesByIDs(_ context.Context, ids []uint64) (map[uint64]model.HotelService, error) {
	out := map[uint64]model.HotelService{}
	for _, id := range ids {
		if s, ok := f.services[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type fakePromos struct {
	byCode map[string]*model.Promotion
}

func (f *fakePromos) GetByCode(_ context.Context, code string) (*model.Promotion, error) {
	p, ok := f.byCode[code]
	if !ok {
		return nil, repository.ErrPromotionNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeBookings struct {
	mu          sync.Mutex
	available   bool
	createErrs  []error // popped per call; nil means success
	createCalls int
	nextID      uint64
	byID        map[uint64]*model.Booking
	byOrder     map[int64]*model.Booking
	cancelled   []uint64
	lastOrder   repository.ConfirmOrder
	promoQty    map[uint64]int // remaining quota consumed at write time, like the real store
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{
		available: true,
		nextID:    1,
		byID:      map[uint64]*model.Booking{},
		byOrder:   map[int64]*model.Booking{},
	}
}

func (f *fakeBookings) RoomAvailable(_ context.Context, _ uint64, _, _ time.Time) (bool, error) {
	return f.available, nil
}

func (f *fakeBookings) CreateConfirmed(_ context.Context, ord repository.ConfirmOrder) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if _, exists := f.byOrder[ord.OrderCode]; exists {
		return nil, repository.ErrDuplicateOrderCode
	}
	f.lastOrder = ord
	promotionID := ord.PromotionID
	if promotionID != nil && f.promoQty != nil {
		if q, tracked := f.promoQty[*promotionID]; tracked {
			switch {
			case q > 0:
				f.promoQty[*promotionID] = q - 1
			case ord.StrictPromotion:
				return nil, repository.ErrPromotionExhausted
			default:
				promotionID = nil
			}
		}
	}
	orderCode := ord.OrderCode
	b := &model.Booking{
		ID:             f.nextID,
		BookingCode:    ord.BookingCode,
		UserID:         ord.UserID,
		CheckInDate:    ord.CheckIn,
		CheckOutDate:   ord.CheckOut,
		NumPersons:     ord.NumPersons,
		TotalPrice:     ord.TotalCents,
		FinalPrice:     ord.FinalCents,
		PromotionID:    promotionID,
		BookingStatus:  model.BookingStatusConfirmed,
		PaymentStatus:  model.PaymentStatusPaid,
		PayosOrderCode: &orderCode,
		CreatedAt:      time.Now().UTC(),
	}
	f.nextID++
	f.byID[b.ID] = b
	f.byOrder[orderCode] = b
	return b, nil
}

func (f *fakeBookings) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) GetByOrderCode(_ context.Context, orderCode int64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byOrder[orderCode]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) MarkCancelled(_ context.Context, bookingID uint64, paymentStatus string, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.BookingStatus = model.BookingStatusCancelled
	b.PaymentStatus = paymentStatus
	f.cancelled = append(f.cancelled, bookingID)
	return nil
}

type fakeGateway struct {
	mu         sync.Mutex
	createErr  error
	status     *payment.PaymentInfo
	statusErr  error
	cancelled  []int64
	linksMade  int
	lastCreate payment.LinkRequest
}

func (f *fakeGateway) CreateLink(_ context.Context, req payment.LinkRequest) (*payment.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.linksMade++
	f.lastCreate = req
	return &payment.Link{CheckoutURL: "https://pay.example/checkout", QRCode: "qr"}, nil
}

func (f *fakeGateway) VerifyWebhook(_ []byte) (*payment.WebhookData, error) {
	return nil, errors.New("not used in coordinator tests")
}

func (f *fakeGateway) GetPaymentStatus(_ context.Context, _ int64) (*payment.PaymentInfo, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.status == nil {
		return &payment.PaymentInfo{Status: "PENDING"}, nil
	}
	return f.status, nil
}

func (f *fakeGateway) CancelPayment(_ context.Context, orderCode int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, orderCode)
	return nil
}

// ---- fixture ----

type fixture struct {
	holds    *fakeHolds
	orders   *fakeOrders
	rooms    *fakeRooms
	promos   *fakePromos
	bookings *fakeBookings
	gateway  *fakeGateway

	pubMu     sync.Mutex
	published []*model.Booking
	coord     *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Now().UTC()
	fx := &fixture{
		holds:  newFakeHolds(),
		orders: newFakeOrders(),
		rooms: &fakeRooms{
			room:     &model.Room{ID: 204, RoomTypeID: 1, Name: "204", IsActive: true},
			roomType: &model.RoomType{ID: 1, Name: "Deluxe Double", MaxPersons: 2},
			periods: []model.RatePeriod{{
				RoomTypeID:      1,
				StartDate:       now.AddDate(-1, 0, 0),
				EndDate:         now.AddDate(2, 0, 0),
				NightlyRateCent: 100_000,
			}},
			services: map[uint64]model.HotelService{
				1: {ID: 1, Name: "Breakfast", PriceCents: 15_000, IsActive: true},
			},
		},
		promos:   &fakePromos{byCode: map[string]*model.Promotion{}},
		bookings: newFakeBookings(),
		gateway:  &fakeGateway{},
	}
	publish := func(_ context.Context, b *model.Booking) {
		fx.pubMu.Lock()
		defer fx.pubMu.Unlock()
		fx.published = append(fx.published, b)
	}
	fx.coord = NewCoordinator(fx.holds, fx.orders, fx.rooms, fx.promos, fx.bookings, fx.gateway,
		policy.Default(), publish, "https://hotel.example/ok", "https://hotel.example/cancel")
	return fx
}

func (fx *fixture) addPromotion(code string, discountType string, amount int64, quantity int) {
	now := time.Now().UTC()
	end := now.AddDate(1, 0, 0)
	fx.promos.byCode[code] = &model.Promotion{
		ID:           uint64(len(fx.promos.byCode) + 1),
		Code:         code,
		DiscountType: discountType,
		Amount:       amount,
		StartDate:    now.AddDate(0, -1, 0),
		EndDate:      &end,
		Status:       model.PromotionStatusActive,
		Quantity:     quantity,
	}
}

// holdRequest targets a three-night stay two months out so the
// cancellation policy tests stay ahead of check-in.
func (fx *fixture) holdRequest() CreateHoldRequest {
	userID := uint64(7)
	checkIn := time.Now().UTC().AddDate(0, 2, 0)
	return CreateHoldRequest{
		UserID:   &userID,
		RoomID:   204,
		CheckIn:  checkIn,
		CheckOut: checkIn.AddDate(0, 0, 3),
		Guests:   2,
	}
}

// mustHold runs CreateHold and returns the result plus the stored hold.
func (fx *fixture) mustHold(t *testing.T, req CreateHoldRequest) (*CreateHoldResult, *model.Hold) {
	t.Helper()
	res, err := fx.coord.CreateHold(context.Background(), req)
	require.NoError(t, err)
	hold, err := fx.holds.Get(context.Background(), res.HoldKey)
	require.NoError(t, err)
	return res, hold
}

func webhookFor(res *CreateHoldResult) *payment.WebhookData {
	return &payment.WebhookData{
		OrderCode: res.OrderCode,
		Amount:    res.Quote.FinalCents,
		Reference: "FT2026",
		Code:      "00",
		Success:   true,
	}
}

// ---- CreateHold ----

func TestCreateHold(t *testing.T) {
	fx := newFixture(t)
	res, hold := fx.mustHold(t, fx.holdRequest())

	assert.Equal(t, 3, res.Quote.Nights)
	assert.Equal(t, int64(300_000), res.Quote.FinalCents)
	assert.Equal(t, "https://pay.example/checkout", res.CheckoutURL)
	assert.Greater(t, res.OrderCode, int64(0))

	assert.Equal(t, res.OrderCode, hold.OrderCode)
	assert.Equal(t, int64(300_000), hold.FinalCents)
	assert.WithinDuration(t, time.Now().UTC().Add(30*time.Minute), hold.ExpiresAt, 5*time.Second)

	// The order code resolves to the hold for the webhook path.
	key, err := fx.orders.Resolve(context.Background(), res.OrderCode)
	require.NoError(t, err)
	assert.Equal(t, res.HoldKey, key)

	// The gateway was asked to charge exactly the quoted amount.
	assert.Equal(t, res.Quote.FinalCents, fx.gateway.lastCreate.Amount)
}

func TestCreateHoldTooManyGuests(t *testing.T) {
	fx := newFixture(t)
	req := fx.holdRequest()
	req.Guests = 3
	_, err := fx.coord.CreateHold(context.Background(), req)
	assert.ErrorIs(t, err, ErrTooManyGuests)
}

func TestCreateHoldInvalidDates(t *testing.T) {
	fx := newFixture(t)
	req := fx.holdRequest()
	req.CheckOut = req.CheckIn
	_, err := fx.coord.CreateHold(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestCreateHoldRoomUnavailable(t *testing.T) {
	fx := newFixture(t)
	fx.bookings.available = false
	_, err := fx.coord.CreateHold(context.Background(), fx.holdRequest())
	assert.ErrorIs(t, err, ErrRoomUnavailable)
}

func TestCreateHoldUnknownService(t *testing.T) {
	fx := newFixture(t)
	req := fx.holdRequest()
	req.Services = []model.HoldService{{ServiceID: 99, Quantity: 1}}
	_, err := fx.coord.CreateHold(context.Background(), req)
	assert.ErrorIs(t, err, ErrServiceInvalid)
}

func TestCreateHoldWithServices(t *testing.T) {
	fx := newFixture(t)
	req := fx.holdRequest()
	req.Services = []model.HoldService{{ServiceID: 1, Quantity: 2}}
	res, hold := fx.mustHold(t, req)

	assert.Equal(t, int64(330_000), res.Quote.FinalCents)
	require.Len(t, hold.Services, 1)
	// The unit price is snapshotted so a later catalog edit cannot
	// change what the confirm reconstructs.
	assert.Equal(t, int64(15_000), hold.Services[0].PriceCents)
}

func TestCreateHoldPromotionLenient(t *testing.T) {
	// An invalid code in lenient mode degrades to no discount rather
	// than failing the checkout.
	fx := newFixture(t)
	req := fx.holdRequest()
	req.PromotionCode = "NOSUCH"
	res, _ := fx.mustHold(t, req)
	assert.False(t, res.Quote.PromotionApplied)
	assert.Equal(t, int64(300_000), res.Quote.FinalCents)
}

func TestCreateHoldPromotionStrict(t *testing.T) {
	fx := newFixture(t)
	req := fx.holdRequest()
	req.PromotionCode = "NOSUCH"
	req.StrictPromotion = true
	_, err := fx.coord.CreateHold(context.Background(), req)
	assert.ErrorIs(t, err, ErrPromotionInvalid)
}

func TestCreateHoldPromotionApplied(t *testing.T) {
	fx := newFixture(t)
	fx.addPromotion("SPRING10", model.DiscountTypePercentage, 10, 5)
	req := fx.holdRequest()
	req.PromotionCode = "SPRING10"
	res, hold := fx.mustHold(t, req)

	assert.Equal(t, int64(270_000), res.Quote.FinalCents)
	assert.Equal(t, int64(270_000), hold.FinalCents)
	assert.Equal(t, int64(300_000), hold.TotalCents)
}

func TestCreateHoldGatewayFailureCleansUp(t *testing.T) {
	fx := newFixture(t)
	fx.gateway.createErr = payment.ErrGatewayUnavailable
	_, err := fx.coord.CreateHold(context.Background(), fx.holdRequest())
	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)

	// Neither the hold nor the order mapping survives a dead link.
	assert.Empty(t, fx.holds.holds)
	assert.Empty(t, fx.orders.codes)
}

// ---- ExtendHold ----

func TestExtendHold(t *testing.T) {
	fx := newFixture(t)
	res, _ := fx.mustHold(t, fx.holdRequest())

	hold, err := fx.coord.ExtendHold(context.Background(), res.HoldKey)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(30*time.Minute), hold.ExpiresAt, 5*time.Second)
}

func TestExtendHoldExpired(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.coord.ExtendHold(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrHoldExpired)
}

// ---- Confirm ----

func TestConfirm(t *testing.T) {
	fx := newFixture(t)
	res, _ := fx.mustHold(t, fx.holdRequest())

	got, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	require.NoError(t, err)
	assert.False(t, got.Duplicate)
	assert.Equal(t, model.BookingStatusConfirmed, got.Booking.BookingStatus)
	assert.Equal(t, model.PaymentStatusPaid, got.Booking.PaymentStatus)
	require.NotNil(t, got.Booking.PayosOrderCode)
	assert.Equal(t, res.OrderCode, *got.Booking.PayosOrderCode)

	// The hold and order mapping are gone; the event was published.
	assert.Empty(t, fx.holds.holds)
	assert.Empty(t, fx.orders.codes)
	require.Len(t, fx.published, 1)
	assert.Equal(t, got.Booking.ID, fx.published[0].ID)
}

func TestConfirmDuplicateWebhook(t *testing.T) {
	fx := newFixture(t)
	res, _ := fx.mustHold(t, fx.holdRequest())

	first, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	require.NoError(t, err)

	// Redelivery after the hold was consumed resolves through the
	// persisted booking, not a second row.
	second, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
	assert.Equal(t, 1, fx.bookings.createCalls)
	assert.Len(t, fx.published, 1)
}

func TestConfirmDuplicateOrderCodeAtWrite(t *testing.T) {
	// Two deliveries race past the hold lookup; the second insert hits
	// the unique order code and resolves idempotently.
	fx := newFixture(t)
	res, _ := fx.mustHold(t, fx.holdRequest())

	first, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	require.NoError(t, err)

	// Re-arm the hold as if the second delivery read it before the
	// first one released it.
	fx.orders.Map(context.Background(), res.OrderCode, res.HoldKey, time.Minute)
	checkIn := time.Now().UTC().AddDate(0, 2, 0)
	hold := &model.Hold{HoldKey: res.HoldKey, RoomID: 204, Guests: 2,
		CheckIn: checkIn, CheckOut: checkIn.AddDate(0, 0, 3),
		TotalCents: 300_000, FinalCents: 300_000, OrderCode: res.OrderCode}
	require.NoError(t, fx.holds.Save(context.Background(), hold))

	second, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
}

func TestConfirmAmountMismatch(t *testing.T) {
	fx := newFixture(t)
	res, _ := fx.mustHold(t, fx.holdRequest())

	data := webhookFor(res)
	data.Amount = data.Amount - 1
	_, err := fx.coord.Confirm(context.Background(), data)
	assert.ErrorIs(t, err, ErrAmountMismatch)

	// Nothing was written and the hold survives for reconciliation.
	assert.Equal(t, 0, fx.bookings.createCalls)
	assert.Len(t, fx.holds.holds, 1)
}

func TestConfirmExpiredHoldPaidTooLate(t *testing.T) {
	fx := newFixture(t)
	res, _ := fx.mustHold(t, fx.holdRequest())

	// Simulate TTL expiry.
	require.NoError(t, fx.holds.Delete(context.Background(), res.HoldKey))
	require.NoError(t, fx.orders.Delete(context.Background(), res.OrderCode))

	fx.gateway.status = &payment.PaymentInfo{OrderCode: res.OrderCode, Status: "PAID", AmountPaid: 300_000}
	_, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	assert.ErrorIs(t, err, ErrHoldExpired)

	// Money moved, so a gateway-side cancel was requested.
	assert.Contains(t, fx.gateway.cancelled, res.OrderCode)
	assert.Equal(t, 0, fx.bookings.createCalls)
}

func TestConfirmRaceLoss(t *testing.T) {
	fx := newFixture(t)
	res, _ := fx.mustHold(t, fx.holdRequest())

	fx.bookings.createErrs = []error{repository.ErrRoomOverlap}
	_, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	assert.ErrorIs(t, err, ErrRoomNoLongerAvailable)

	// Compensation: gateway cancel requested, hold released, nothing
	// published.
	assert.Contains(t, fx.gateway.cancelled, res.OrderCode)
	assert.Empty(t, fx.holds.holds)
	assert.Empty(t, fx.published)
	// Sentinel outcomes are terminal: exactly one attempt.
	assert.Equal(t, 1, fx.bookings.createCalls)
}

func TestConfirmRetriesTransientFailures(t *testing.T) {
	fx := newFixture(t)
	res, _ := fx.mustHold(t, fx.holdRequest())

	fx.bookings.createErrs = []error{errors.New("deadlock"), errors.New("deadlock"), nil}
	got, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	require.NoError(t, err)
	assert.False(t, got.Duplicate)
	assert.Equal(t, 3, fx.bookings.createCalls)
}

func TestConfirmGivesUpAfterRetries(t *testing.T) {
	fx := newFixture(t)
	res, _ := fx.mustHold(t, fx.holdRequest())

	fx.bookings.createErrs = []error{errors.New("down"), errors.New("down"), errors.New("down")}
	_, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	require.Error(t, err)
	assert.Equal(t, 3, fx.bookings.createCalls)

	// The hold survives: a later redelivery can still settle.
	assert.Len(t, fx.holds.holds, 1)
}

func TestConfirmStrictPromotionDied(t *testing.T) {
	// The promo was valid at hold time but died before confirm; in
	// strict mode the confirm refuses rather than charging full price.
	fx := newFixture(t)
	fx.addPromotion("SPRING10", model.DiscountTypePercentage, 10, 5)
	req := fx.holdRequest()
	req.PromotionCode = "SPRING10"
	req.StrictPromotion = true
	res, _ := fx.mustHold(t, req)

	fx.promos.byCode["SPRING10"].Status = model.PromotionStatusExpired
	_, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	assert.ErrorIs(t, err, ErrPromotionInvalid)
}

func TestConfirmLenientPromotionDied(t *testing.T) {
	// In lenient mode the booking still lands, just without the
	// promotion attached.
	fx := newFixture(t)
	fx.addPromotion("SPRING10", model.DiscountTypePercentage, 10, 5)
	req := fx.holdRequest()
	req.PromotionCode = "SPRING10"
	res, _ := fx.mustHold(t, req)

	fx.promos.byCode["SPRING10"].Status = model.PromotionStatusExpired
	got, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	require.NoError(t, err)
	assert.Nil(t, got.Booking.PromotionID)
	// The customer pays the held (discounted) amount either way.
	assert.Equal(t, int64(270_000), got.Booking.FinalPrice)
}

func TestConfirmConcurrentPromotionQuantityOne(t *testing.T) {
	// Several paid holds race for the last unit of a promotion. The
	// quota is consumed inside the confirm write, so exactly one
	// booking keeps the promotion, the counter never goes negative,
	// and the losers still land at the price they were charged.
	fx := newFixture(t)
	fx.addPromotion("LAST1", model.DiscountTypePercentage, 10, 1)
	promoID := fx.promos.byCode["LAST1"].ID
	fx.bookings.promoQty = map[uint64]int{promoID: 1}

	const n = 6
	held := make([]*CreateHoldResult, n)
	for i := 0; i < n; i++ {
		req := fx.holdRequest()
		req.PromotionCode = "LAST1"
		held[i], _ = fx.mustHold(t, req)
		// Order codes embed a millisecond timestamp; spacing the holds
		// out keeps the six codes distinct.
		time.Sleep(2 * time.Millisecond)
	}

	results := make([]*ConfirmResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = fx.coord.Confirm(context.Background(), webhookFor(held[i]))
		}(i)
	}
	wg.Wait()

	withPromo := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if results[i].Booking.PromotionID != nil {
			withPromo++
		}
		assert.Equal(t, int64(270_000), results[i].Booking.FinalPrice)
	}
	assert.Equal(t, 1, withPromo)
	assert.Equal(t, 0, fx.bookings.promoQty[promoID])
	assert.Equal(t, n, fx.bookings.createCalls)
}

func TestConfirmStrictPromotionExhaustedAtWrite(t *testing.T) {
	// Strict holds refuse to land without their discount even when the
	// quota vanishes only at write time.
	fx := newFixture(t)
	fx.addPromotion("LAST1", model.DiscountTypePercentage, 10, 1)
	promoID := fx.promos.byCode["LAST1"].ID
	fx.bookings.promoQty = map[uint64]int{promoID: 0}

	req := fx.holdRequest()
	req.PromotionCode = "LAST1"
	req.StrictPromotion = true
	res, _ := fx.mustHold(t, req)

	_, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	assert.ErrorIs(t, err, repository.ErrPromotionExhausted)
	// Sentinel outcome: no retry, no negative counter.
	assert.Equal(t, 1, fx.bookings.createCalls)
	assert.Equal(t, 0, fx.bookings.promoQty[promoID])
}

func TestConfirmServiceRemovedKeepsQuote(t *testing.T) {
	// A service deleted from the catalog mid-checkout drops off the
	// booking, but its quoted line still comes out of the room price so
	// the row totals keep matching what the gateway captured.
	fx := newFixture(t)
	req := fx.holdRequest()
	req.Services = []model.HoldService{{ServiceID: 1, Quantity: 2}}
	res, _ := fx.mustHold(t, req)
	require.Equal(t, int64(330_000), res.Quote.FinalCents)

	delete(fx.rooms.services, 1)

	got, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	require.NoError(t, err)
	assert.Equal(t, int64(330_000), got.Booking.FinalPrice)
	assert.Empty(t, fx.bookings.lastOrder.Services)
	// The orphaned 2x15,000 line is not absorbed into the room price.
	assert.Equal(t, int64(300_000), fx.bookings.lastOrder.RoomPriceCents)
}

// ---- ManualConfirm ----

func TestManualConfirmRequiresPaid(t *testing.T) {
	fx := newFixture(t)
	res, _ := fx.mustHold(t, fx.holdRequest())

	fx.gateway.status = &payment.PaymentInfo{OrderCode: res.OrderCode, Status: "PENDING"}
	_, err := fx.coord.ManualConfirm(context.Background(), res.OrderCode)
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	assert.Equal(t, 0, fx.bookings.createCalls)
}

func TestManualConfirm(t *testing.T) {
	fx := newFixture(t)
	res, _ := fx.mustHold(t, fx.holdRequest())

	fx.gateway.status = &payment.PaymentInfo{OrderCode: res.OrderCode, Status: "PAID", AmountPaid: 300_000}
	got, err := fx.coord.ManualConfirm(context.Background(), res.OrderCode)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, got.Booking.BookingStatus)
}

// ---- Cancel ----

func confirmBooking(t *testing.T, fx *fixture) *model.Booking {
	t.Helper()
	res, _ := fx.mustHold(t, fx.holdRequest())
	got, err := fx.coord.Confirm(context.Background(), webhookFor(res))
	require.NoError(t, err)
	return got.Booking
}

func TestCancelByOwner(t *testing.T) {
	fx := newFixture(t)
	booking := confirmBooking(t, fx)

	userID := uint64(7)
	res, err := fx.coord.Cancel(context.Background(), CancelRequest{BookingID: booking.ID, UserID: &userID})
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, res.Booking.BookingStatus)
	assert.Equal(t, model.PaymentStatusRefunded, res.Booking.PaymentStatus)
	// Booked and cancelled within the grace window: full refund.
	assert.Equal(t, int64(300_000), res.RefundCents)
	// The gateway was asked to void the payment.
	assert.Contains(t, fx.gateway.cancelled, *booking.PayosOrderCode)
}

func TestCancelForbiddenForStranger(t *testing.T) {
	fx := newFixture(t)
	booking := confirmBooking(t, fx)

	stranger := uint64(99)
	_, err := fx.coord.Cancel(context.Background(), CancelRequest{BookingID: booking.ID, UserID: &stranger})
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestCancelByAdmin(t *testing.T) {
	fx := newFixture(t)
	booking := confirmBooking(t, fx)

	res, err := fx.coord.Cancel(context.Background(), CancelRequest{BookingID: booking.ID, IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, res.Booking.BookingStatus)
}

func TestCancelAlreadyCancelled(t *testing.T) {
	fx := newFixture(t)
	booking := confirmBooking(t, fx)

	_, err := fx.coord.Cancel(context.Background(), CancelRequest{BookingID: booking.ID, IsAdmin: true})
	require.NoError(t, err)
	_, err = fx.coord.Cancel(context.Background(), CancelRequest{BookingID: booking.ID, IsAdmin: true})
	assert.ErrorIs(t, err, policy.ErrCancellationNotAllowed)
}

func TestCancelUnknownBooking(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.coord.Cancel(context.Background(), CancelRequest{BookingID: 42, IsAdmin: true})
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
}
