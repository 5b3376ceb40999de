// Package payments constructs the payment payload shown to a payer before
// they submit a transaction. The payload follows the EMV merchant-presented
// record encoding used by Brazilian instant payments (BR Code): a sequence
// of id-length-value records carrying the beneficiary key, display name,
// city, optional amount, and a transaction reference, terminated by a
// CRC-16 checksum. Any downstream QR renderer can consume the string; the
// core owns only payload construction.
//
// Payloads are deterministic pure functions of their input and must be
// regenerated, never cached, whenever the amount or beneficiary changes.
package payments

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ideapool/go-ideas-backend/internal/apperr"
)

// EMV record identifiers used in the payload.
const (
	idPayloadFormat    = "00"
	idMerchantAccount  = "26"
	idMerchantCategory = "52"
	idCurrency         = "53"
	idAmount           = "54"
	idCountry          = "58"
	idMerchantName     = "59"
	idMerchantCity     = "60"
	idAdditionalData   = "62"
	idCRC              = "63"

	subGUI = "00"
	subKey = "01"
	subRef = "05"

	accountGUI   = "br.gov.bcb.pix"
	currencyBRL  = "986"
	countryCode  = "BR"
	categoryNone = "0000"

	maxNameLen = 25
	maxCityLen = 15
	maxRefLen  = 25
)

// Request carries everything needed to build one payment payload.
type Request struct {
	// BeneficiaryKey is the owner's payment key. Empty keys are a
	// configuration error actionable by the idea owner, not the payer.
	BeneficiaryKey string
	// BeneficiaryName is the display name embedded in the payload.
	BeneficiaryName string
	// City is the beneficiary's city code.
	City string
	// Amount is optional; nil produces an open-amount payload (donations
	// where the payer types the value in their banking app).
	Amount *decimal.Decimal
	// Reference identifies the transaction in the additional-data record.
	Reference string
}

// BuildPayload assembles the record-encoded payment string.
//
// It fails with a Configuration taxonomy error when the beneficiary key is
// missing (callers surface that to the payer as "ask the owner to
// configure payments") and with a Validation error for non-positive
// amounts.
func BuildPayload(req Request) (string, error) {
	key := strings.TrimSpace(req.BeneficiaryKey)
	if key == "" {
		return "", apperr.Configuration("beneficiary has no payment key configured")
	}
	if req.Amount != nil && req.Amount.Sign() <= 0 {
		return "", apperr.Validation("payment amount must be positive")
	}

	name := foldText(req.BeneficiaryName, maxNameLen)
	if name == "" {
		name = "UNKNOWN"
	}
	city := foldText(req.City, maxCityLen)
	if city == "" {
		city = "CITY"
	}
	ref := foldRef(req.Reference)

	var b strings.Builder
	b.WriteString(record(idPayloadFormat, "01"))
	b.WriteString(record(idMerchantAccount, record(subGUI, accountGUI)+record(subKey, key)))
	b.WriteString(record(idMerchantCategory, categoryNone))
	b.WriteString(record(idCurrency, currencyBRL))
	if req.Amount != nil {
		b.WriteString(record(idAmount, req.Amount.StringFixed(2)))
	}
	b.WriteString(record(idCountry, countryCode))
	b.WriteString(record(idMerchantName, name))
	b.WriteString(record(idMerchantCity, city))
	b.WriteString(record(idAdditionalData, record(subRef, ref)))

	// The CRC record covers everything up to and including its own id and
	// length digits.
	payload := b.String() + idCRC + "04"
	return payload + checksum(payload), nil
}

// record encodes one id-length-value triple. Values longer than 99 bytes
// are truncated; the inputs above are already capped well below that.
func record(id, value string) string {
	if len(value) > 99 {
		value = value[:99]
	}
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

// foldText uppercases, strips diacritics, and drops characters outside the
// conservative set accepted by payment apps, then truncates to max bytes.
func foldText(s string, max int) string {
	stripped, _, err := transform.String(transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	), s)
	if err != nil {
		stripped = s
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(stripped) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if len(out) > max {
		out = strings.TrimSpace(out[:max])
	}
	return out
}

// foldRef restricts the transaction reference to the alphanumeric charset
// allowed in the additional-data record. Empty references become "***"
// (open reference).
func foldRef(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "***"
	}
	if len(out) > maxRefLen {
		out = out[:maxRefLen]
	}
	return out
}

// checksum computes the CRC-16/CCITT-FALSE checksum (poly 0x1021, init
// 0xFFFF) of s, returned as four uppercase hex digits.
func checksum(s string) string {
	crc := uint16(0xFFFF)
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return fmt.Sprintf("%04X", crc)
}
