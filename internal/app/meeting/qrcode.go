package meeting

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRSize is the edge length in pixels of the rendered attendance code.
const QRSize = 512

// AttendanceQR renders the PNG a host displays for check-in. Its payload is exactly the
// meeting identifier.
func AttendanceQR(meetingID string) ([]byte, error) {
	png, err := qrcode.Encode(meetingID, qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("encode attendance code: %w", err)
	}
	return png, nil
}
