package utils // package utils provides identifier generation helpers for checkout

import (
	"crypto/rand"   // secure random number generation
	"encoding/hex"  // hex encoding for key suffixes
	"fmt"           // string assembly
	"math/big"      // unbiased random integers for booking codes
	"strings"       // case normalization
	"time"          // timestamps embedded in keys

	"github.com/google/uuid" // UUIDs for payment transaction references
)

// bookingCodeAlphabet deliberately omits 0/O and 1/I so codes survive
// being read over the phone at a front desk.
const bookingCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// NewHoldKey builds the key under which a hold is stored.  The key is
// a composite of the user (0 for guests), room, stay dates, creation
// timestamp and 8 random bytes, which makes it unpredictable and
// collision-free even when two identical requests race each other.
func NewHoldKey(userID uint64, roomID uint64, checkIn, checkOut time.Time) (string, error) {
	suffix, err := randomHex(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%d:%s:%s:%d:%s",
		userID, roomID,
		checkIn.Format("20060102"), checkOut.Format("20060102"),
		time.Now().UTC().UnixNano(), suffix), nil
}

// NewOrderCode produces a gateway order code.  PayOS requires a
// positive integer unique per payment link, so we combine a
// millisecond timestamp with three random digits.  The 16-digit
// result stays below 2^53, the point past which JSON consumers start
// losing integer precision.
func NewOrderCode() (int64, error) {
	n, err := randInt(1000)
	if err != nil {
		return 0, err
	}
	return time.Now().UTC().UnixMilli()*1000 + n, nil
}

// NewBookingCode returns a short human-shareable booking reference
// such as "BK-7FQ2M9KC".  Uniqueness is ultimately enforced by the
// unique index on bookings.booking_code; the 8 random characters make
// collisions vanishingly rare in practice.
func NewBookingCode() (string, error) {
	var b strings.Builder
	b.WriteString("BK-")
	for i := 0; i < 8; i++ {
		n, err := randInt(int64(len(bookingCodeAlphabet)))
		if err != nil {
			return "", err
		}
		b.WriteByte(bookingCodeAlphabet[n])
	}
	return b.String(), nil
}

// NewTransactionID returns a UUID string used as the internal
// reference on payment rows when the gateway does not supply one.
func NewTransactionID() string {
	return uuid.NewString()
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// randInt returns a uniform random integer in [0, max) using
// crypto/rand so booking codes are not guessable.
func randInt(max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}
