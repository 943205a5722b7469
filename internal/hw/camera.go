package hw

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/blackjack/webcam"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// fourcc V4L2 para YUYV 4:2:2, el formato que entregan las webcams USB
// baratas de las casetas.
const fmtYUYV = webcam.PixelFormat(0x56595559)

const (
	frameWidth  = 640
	frameHeight = 480
)

// Camera captura frames V4L2 y les busca un código QR con gozxing. Un frame
// sin QR legible no es error, simplemente no hay lectura.
type Camera struct {
	cam    *webcam.Webcam
	width  uint32
	height uint32
	reader gozxing.Reader
	logger *slog.Logger
}

// OpenCamera abre /dev/videoN, negocia YUYV y arranca el streaming.
func OpenCamera(index int, logger *slog.Logger) (*Camera, error) {
	device := fmt.Sprintf("/dev/video%d", index)
	cam, err := webcam.Open(device)
	if err != nil {
		return nil, fmt.Errorf("open camera %s: %w", device, err)
	}
	if _, ok := cam.GetSupportedFormats()[fmtYUYV]; !ok {
		_ = cam.Close()
		return nil, fmt.Errorf("camera %s does not support YUYV", device)
	}
	f, w, h, err := cam.SetImageFormat(fmtYUYV, frameWidth, frameHeight)
	if err != nil {
		_ = cam.Close()
		return nil, fmt.Errorf("set camera format: %w", err)
	}
	if f != fmtYUYV {
		_ = cam.Close()
		return nil, fmt.Errorf("camera negotiated unexpected format %08x", uint32(f))
	}
	if err := cam.StartStreaming(); err != nil {
		_ = cam.Close()
		return nil, fmt.Errorf("start camera streaming: %w", err)
	}
	c := &Camera{
		cam:    cam,
		width:  w,
		height: h,
		reader: qrcode.NewQRCodeReader(),
		logger: logger.With("component", "hw.camera"),
	}
	c.logger.Info("camera streaming", "device", device, "width", w, "height", h)
	return c, nil
}

// DecodeFrame captura el siguiente frame e intenta decodificar un QR. Con la
// cámara sana el frame llega en milisegundos; una cámara trabada bloquea a
// lo más un segundo.
func (c *Camera) DecodeFrame() (string, bool) {
	if err := c.cam.WaitForFrame(1); err != nil {
		return "", false
	}
	frame, err := c.cam.ReadFrame()
	if err != nil || len(frame) == 0 {
		return "", false
	}
	img, ok := grayFromYUYV(frame, int(c.width), int(c.height))
	if !ok {
		return "", false
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}
	res, err := c.reader.Decode(bmp, nil)
	if err != nil {
		// lo normal: frame sin QR
		return "", false
	}
	return res.GetText(), true
}

// grayFromYUYV extrae el plano de luma de un frame YUYV. Valida el tamaño
// del buffer antes de indexarlo.
func grayFromYUYV(frame []byte, w, h int) (*image.Gray, bool) {
	if w <= 0 || h <= 0 || len(frame) < w*h*2 {
		return nil, false
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Pix[i] = frame[i*2]
	}
	return img, true
}

func (c *Camera) Close() error {
	_ = c.cam.StopStreaming()
	return c.cam.Close()
}
