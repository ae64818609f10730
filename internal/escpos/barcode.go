package escpos

// BarcodeType names a symbology supported by the GS k command.
type BarcodeType string

const (
	BarcodeUPCA    BarcodeType = "UPC-A"
	BarcodeUPCE    BarcodeType = "UPC-E"
	BarcodeEAN13   BarcodeType = "EAN13"
	BarcodeEAN8    BarcodeType = "EAN8"
	BarcodeCode39  BarcodeType = "CODE39"
	BarcodeITF     BarcodeType = "ITF"
	BarcodeCodabar BarcodeType = "CODABAR"
	BarcodeCode93  BarcodeType = "CODE93"
	BarcodeCode128 BarcodeType = "CODE128"
)

// barcodeCodes maps symbologies to the function-B selector bytes.
var barcodeCodes = map[BarcodeType]byte{
	BarcodeUPCA:    65,
	BarcodeUPCE:    66,
	BarcodeEAN13:   67,
	BarcodeEAN8:    68,
	BarcodeCode39:  69,
	BarcodeITF:     70,
	BarcodeCodabar: 71,
	BarcodeCode93:  72,
	BarcodeCode128: 73,
}

// BarcodeOptions tunes barcode geometry. Zero values pick the
// defaults: 80 dot height, module width 2, no human-readable text.
type BarcodeOptions struct {
	Height       byte
	Width        byte
	TextPosition byte // 0 none, 1 above, 2 below, 3 both
}
