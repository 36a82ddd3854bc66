package matterrt

import (
	"fmt"
	"strings"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

// base38Alphabet is the alphabet this runtime's placeholder QR codec
// uses to render payload bytes as text, in the spirit of Matter's own
// base-38 onboarding payload encoding (this is not the certified
// encoding — see DESIGN.md's Matter-wire-layer decision).
const base38Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-."

// verhoeffDTable and verhoeffPTable are the standard Verhoeff
// checksum tables, used to compute the manual pairing code's trailing
// check digit.
var verhoeffDTable = [10][10]int{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 2, 3, 4, 0, 6, 7, 8, 9, 5},
	{2, 3, 4, 0, 1, 7, 8, 9, 5, 6},
	{3, 4, 0, 1, 2, 8, 9, 5, 6, 7},
	{4, 0, 1, 2, 3, 9, 5, 6, 7, 8},
	{5, 9, 8, 7, 6, 0, 4, 3, 2, 1},
	{6, 5, 9, 8, 7, 1, 0, 4, 3, 2},
	{7, 6, 5, 9, 8, 2, 1, 0, 4, 3},
	{8, 7, 6, 5, 9, 3, 2, 1, 0, 4},
	{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
}

var verhoeffPTable = [8][10]int{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 5, 7, 6, 2, 8, 3, 0, 9, 4},
	{5, 8, 0, 3, 7, 9, 6, 1, 4, 2},
	{8, 9, 1, 6, 0, 4, 3, 5, 2, 7},
	{9, 4, 5, 3, 1, 2, 6, 8, 7, 0},
	{4, 2, 8, 6, 5, 7, 3, 9, 0, 1},
	{2, 7, 9, 3, 8, 0, 6, 4, 1, 5},
	{7, 0, 4, 6, 9, 1, 3, 2, 5, 8},
}

// verhoeffCheckDigit returns the check digit that makes digits (a
// string of decimal digits) pass the Verhoeff checksum.
func verhoeffCheckDigit(digits string) int {
	c := 0
	reversed := []byte(digits)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	for i, ch := range reversed {
		d := int(ch - '0')
		c = verhoeffDTable[c][verhoeffPTable[(i+1)%8][d]]
	}
	return verhoeffInvTable[c]
}

// verhoeffInvTable is the Verhoeff multiplicative inverse table.
var verhoeffInvTable = [10]int{0, 4, 3, 2, 1, 5, 6, 7, 8, 9}

// PairingInfo derives deterministic commissioning material from
// bridgeID, passcode, and discriminator. It is a pure function and
// requires no running runtime, per spec §4.5.
func PairingInfo(bridgeID string, passcode uint32, discriminator uint16) model.PairingInfo {
	discriminator &= 0x0FFF // 12-bit field

	// 11-digit manual code: discriminator bits 10-11 (1 digit), then
	// discriminator bits 8-9 above the low 14 passcode bits (5 digits),
	// then the passcode's remaining high bits (4 digits), then the
	// Verhoeff check digit.
	base := fmt.Sprintf("%01d%05d%04d", discriminator>>10,
		(uint32(discriminator&0x300)<<6)|(passcode&0x3FFF), (passcode>>14)%10000)
	check := verhoeffCheckDigit(base)
	manualCode := fmt.Sprintf("%s%d", base, check)

	qrText := encodeBase38(bridgeID, passcode, discriminator)
	qrUnicode := renderQRUnicode(qrText)

	return model.PairingInfo{
		QRText:        qrText,
		QRUnicode:     qrUnicode,
		ManualCode:    manualCode,
		Discriminator: discriminator,
	}
}

// encodeBase38 packs the bridge id, passcode, and discriminator into a
// deterministic base-38 string, mirroring the shape of a Matter
// onboarding payload (MT: prefix + base-38 body) without implementing
// the certified bit layout.
func encodeBase38(bridgeID string, passcode uint32, discriminator uint16) string {
	payload := make([]byte, 0, len(bridgeID)+8)
	payload = append(payload, byte(discriminator>>8), byte(discriminator))
	payload = append(payload, byte(passcode>>24), byte(passcode>>16), byte(passcode>>8), byte(passcode))
	payload = append(payload, []byte(bridgeID)...)

	var b strings.Builder
	b.WriteString("MT:")
	for i := 0; i < len(payload); i += 2 {
		var chunk uint32
		chunk = uint32(payload[i])
		if i+1 < len(payload) {
			chunk |= uint32(payload[i+1]) << 8
		}
		for j := 0; j < 3; j++ {
			b.WriteByte(base38Alphabet[chunk%38])
			chunk /= 38
		}
	}
	return b.String()
}

// renderQRUnicode draws a minimal block-character frame around qrText,
// for terminal display at commissioning time — a placeholder for an
// actual QR bitmap renderer.
func renderQRUnicode(qrText string) string {
	border := strings.Repeat("█", len(qrText)+4)
	return fmt.Sprintf("%s\n█ %s █\n%s", border, qrText, border)
}
