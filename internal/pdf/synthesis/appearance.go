package synthesis

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const (
	textFontName  = "Helv"
	checkFontName = "ZaDb"
	onState       = "Yes"
	offState      = "Off"

	// checkGlyph is the ZapfDingbats check mark and its advance width
	checkGlyph      = "4"
	checkGlyphWidth = 0.846
)

func helveticaFont() types.Dict {
	return types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name("Helvetica"),
		"Encoding": types.Name("WinAnsiEncoding"),
	}
}

func zapfDingbatsFont() types.Dict {
	return types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name("ZapfDingbats"),
	}
}

func textDA(fontSize float64) types.StringLiteral {
	return types.StringLiteral(fmt.Sprintf("/%s %s Tf 0 g", textFontName, num(fontSize)))
}

// textAppearance is the empty marked-content block viewers fill on edit
func textAppearance() []byte {
	return []byte("/Tx BMC\nEMC\n")
}

// checkboxAppearance draws a bordered square, with a check mark when on
func checkboxAppearance(width, height float64, on bool) []byte {
	var buf bytes.Buffer
	buf.WriteString("q\n")
	buf.WriteString("1 g\n0 0 0 RG\n0.5 w\n")
	fmt.Fprintf(&buf, "0.25 0.25 %.2f %.2f re\n", width-0.5, height-0.5)
	buf.WriteString("B\n")

	if on {
		size := 0.8 * math.Min(width, height)
		x := (width - checkGlyphWidth*size) / 2
		y := (height - 0.7*size) / 2
		buf.WriteString("0 g\n")
		buf.WriteString("BT\n")
		fmt.Fprintf(&buf, "/%s %.2f Tf\n", checkFontName, size)
		fmt.Fprintf(&buf, "%.2f %.2f Td\n", x, y)
		fmt.Fprintf(&buf, "(%s) Tj\n", checkGlyph)
		buf.WriteString("ET\n")
	}

	buf.WriteString("Q\n")
	return buf.Bytes()
}

// formXObject stores content as a Form XObject sized width x height
func formXObject(pctx *model.Context, content []byte, width, height float64, fonts types.Dict) (*types.IndirectRef, error) {
	sd, err := pctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, fmt.Errorf("failed to create appearance stream: %w", err)
	}

	sd.Dict["Type"] = types.Name("XObject")
	sd.Dict["Subtype"] = types.Name("Form")
	sd.Dict["BBox"] = types.Array{types.Float(0), types.Float(0), types.Float(width), types.Float(height)}
	sd.Dict["Resources"] = types.Dict{"Font": fonts}

	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("failed to encode appearance stream: %w", err)
	}

	return pctx.IndRefForNewObject(*sd)
}

// textString encodes s as a PDF text string: a literal when it is printable
// ASCII, UTF-16BE with a byte order mark otherwise.
func textString(s string) types.Object {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return utf16Hex(s)
		}
	}
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return types.StringLiteral(r.Replace(s))
}

func utf16Hex(s string) types.HexLiteral {
	units := utf16.Encode([]rune(s))
	b := make([]byte, 2, 2+2*len(units))
	b[0], b[1] = 0xFE, 0xFF
	for _, u := range units {
		b = append(b, byte(u>>8), byte(u))
	}
	return types.HexLiteral(strings.ToUpper(hex.EncodeToString(b)))
}

func rectArray(r [4]float64) types.Array {
	return types.Array{types.Float(r[0]), types.Float(r[1]), types.Float(r[2]), types.Float(r[3])}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
