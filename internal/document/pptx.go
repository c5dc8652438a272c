// Package document собирает файлы презентаций в формате Office Open XML (.pptx).
package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Размер слайда 16:9 в сантиметрах и перевод в EMU.
const (
	SlideWidthCM  = 33.867
	SlideHeightCM = 19.05
	emuPerCM      = 360000

	slideWidthEMU  = 12192000
	slideHeightEMU = 6858000
)

func emu(cm float64) int64 {
	return int64(cm*emuPerCM + 0.5)
}

// Rect - положение элемента на слайде в сантиметрах.
type Rect struct {
	Left, Top, Width, Height float64
}

type TextBox struct {
	Rect
	Text     string
	FontSize int
	Bold     bool
	Color    string
}

type Picture struct {
	Rect
	Name string
	Data []byte
}

type Slide struct {
	Texts    []TextBox
	Pictures []Picture
}

// Deck - всё, что нужно для сборки файла.
type Deck struct {
	Title      string
	Author     string
	Background string
	FontFamily string
	Slides     []Slide
}

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// Render пишет .pptx в w.
func Render(w io.Writer, deck Deck) error {
	if len(deck.Slides) == 0 {
		return fmt.Errorf("deck has no slides")
	}
	if deck.Background == "" {
		deck.Background = "FFFFFF"
	}
	if deck.FontFamily == "" {
		deck.FontFamily = "Calibri"
	}

	zw := zip.NewWriter(w)
	files := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML(len(deck.Slides))},
		{"_rels/.rels", rootRelsXML},
		{"docProps/core.xml", coreXML(deck.Title, deck.Author)},
		{"ppt/presentation.xml", presentationXML(len(deck.Slides))},
		{"ppt/_rels/presentation.xml.rels", presentationRelsXML(len(deck.Slides))},
		{"ppt/slideMasters/slideMaster1.xml", slideMasterXML},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRelsXML},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayoutXML},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRelsXML},
		{"ppt/theme/theme1.xml", themeXML(deck.FontFamily)},
	}
	for _, f := range files {
		if err := writeZipFile(zw, f.name, []byte(f.body)); err != nil {
			return err
		}
	}

	mediaIndex := 0
	for i, slide := range deck.Slides {
		var rels []string
		var pics []string
		shapeID := 2
		for _, p := range slide.Pictures {
			ext := strings.ToLower(filepath.Ext(p.Name))
			if _, ok := imageTypes[ext]; !ok {
				return fmt.Errorf("slide %d: unsupported image type %q", i+1, ext)
			}
			mediaIndex++
			mediaName := fmt.Sprintf("image%d%s", mediaIndex, ext)
			if err := writeZipFile(zw, "ppt/media/"+mediaName, p.Data); err != nil {
				return err
			}
			relID := fmt.Sprintf("rId%d", len(rels)+2)
			rels = append(rels, fmt.Sprintf(
				`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/%s"/>`,
				relID, mediaName))
			pics = append(pics, pictureXML(shapeID, relID, p))
			shapeID++
		}

		var shapes []string
		for _, t := range slide.Texts {
			shapes = append(shapes, textBoxXML(shapeID, t, deck.FontFamily))
			shapeID++
		}

		name := fmt.Sprintf("ppt/slides/slide%d.xml", i+1)
		if err := writeZipFile(zw, name, []byte(slideXML(deck.Background, shapes, pics))); err != nil {
			return err
		}
		relsName := fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1)
		if err := writeZipFile(zw, relsName, []byte(slideRelsXML(rels))); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия zip writer: %w", err)
	}
	return nil
}

// RenderBytes - Render в память.
func RenderBytes(deck Deck) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := Render(buf, deck); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("ошибка создания файла в zip: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("ошибка записи в %s: %w", name, err)
	}
	return nil
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

func textBoxXML(id int, t TextBox, font string) string {
	size := t.FontSize
	if size <= 0 {
		size = 18
	}
	color := t.Color
	if color == "" {
		color = "000000"
	}
	bold := "0"
	if t.Bold {
		bold = "1"
	}

	var paragraphs strings.Builder
	for _, line := range strings.Split(t.Text, "\n") {
		fmt.Fprintf(&paragraphs,
			`<a:p><a:r><a:rPr lang="ru-RU" sz="%d" b="%s" dirty="0"><a:solidFill><a:srgbClr val="%s"/></a:solidFill><a:latin typeface="%s"/></a:rPr><a:t>%s</a:t></a:r></a:p>`,
			size*100, bold, color, escape(font), escape(line))
	}

	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>`+
		`<p:txBody><a:bodyPr wrap="square" rtlCol="0"><a:normAutofit/></a:bodyPr><a:lstStyle/>%s</p:txBody></p:sp>`,
		id, id, emu(t.Left), emu(t.Top), emu(t.Width), emu(t.Height), paragraphs.String())
}

func pictureXML(id int, relID string, p Picture) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`,
		id, id, relID, emu(p.Left), emu(p.Top), emu(p.Width), emu(p.Height))
}

const nsDecl = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const emptyTree = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

func slideXML(background string, shapes, pictures []string) string {
	return xmlHeader + `<p:sld ` + nsDecl + `><p:cSld>` +
		`<p:bg><p:bgPr><a:solidFill><a:srgbClr val="` + escape(background) + `"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>` +
		`<p:spTree>` + emptyTree + strings.Join(pictures, "") + strings.Join(shapes, "") + `</p:spTree></p:cSld>` +
		`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`
}

func slideRelsXML(images []string) string {
	return xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
		strings.Join(images, "") + `</Relationships>`
}

func contentTypesXML(slides int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	b.WriteString(`<Default Extension="jpg" ContentType="image/jpeg"/>`)
	b.WriteString(`<Default Extension="jpeg" ContentType="image/jpeg"/>`)
	b.WriteString(`<Default Extension="webp" ContentType="image/webp"/>`)
	b.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i)
	}
	b.WriteString(`</Types>`)
	return b.String()
}

const rootRelsXML = xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`</Relationships>`

func coreXML(title, author string) string {
	return xmlHeader + `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">` +
		`<dc:title>` + escape(title) + `</dc:title><dc:creator>` + escape(author) + `</dc:creator></cp:coreProperties>`
}

func presentationXML(slides int) string {
	var ids strings.Builder
	for i := 0; i < slides; i++ {
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+2)
	}
	return xmlHeader + `<p:presentation ` + nsDecl + ` saveSubsetFonts="1">` +
		`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>` +
		`<p:sldIdLst>` + ids.String() + `</p:sldIdLst>` +
		fmt.Sprintf(`<p:sldSz cx="%d" cy="%d"/>`, slideWidthEMU, slideHeightEMU) +
		`<p:notesSz cx="6858000" cy="9144000"/></p:presentation>`
}

func presentationRelsXML(slides int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i+1, i)
	}
	fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="theme/theme1.xml"/>`, slides+2)
	b.WriteString(`</Relationships>`)
	return b.String()
}

const slideMasterXML = xmlHeader + `<p:sldMaster ` + nsDecl + `><p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg>` +
	`<p:spTree>` + emptyTree + `</p:spTree></p:cSld>` +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst></p:sldMaster>`

const slideMasterRelsXML = xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="../theme/theme1.xml"/>` +
	`</Relationships>`

const slideLayoutXML = xmlHeader + `<p:sldLayout ` + nsDecl + ` type="blank" preserve="1"><p:cSld name="Blank"><p:spTree>` + emptyTree +
	`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`

const slideLayoutRelsXML = xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="../slideMasters/slideMaster1.xml"/>` +
	`</Relationships>`

func themeXML(font string) string {
	f := escape(font)
	solid := `<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>`
	line := `<a:ln w="9525"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>`
	return xmlHeader + `<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Student Services"><a:themeElements>` +
		`<a:clrScheme name="Student Services">` +
		`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1><a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
		`<a:dk2><a:srgbClr val="1F2937"/></a:dk2><a:lt2><a:srgbClr val="F3F4F6"/></a:lt2>` +
		`<a:accent1><a:srgbClr val="2563EB"/></a:accent1><a:accent2><a:srgbClr val="16A34A"/></a:accent2>` +
		`<a:accent3><a:srgbClr val="F59E0B"/></a:accent3><a:accent4><a:srgbClr val="DC2626"/></a:accent4>` +
		`<a:accent5><a:srgbClr val="7C3AED"/></a:accent5><a:accent6><a:srgbClr val="0891B2"/></a:accent6>` +
		`<a:hlink><a:srgbClr val="2563EB"/></a:hlink><a:folHlink><a:srgbClr val="7C3AED"/></a:folHlink></a:clrScheme>` +
		`<a:fontScheme name="Student Services"><a:majorFont><a:latin typeface="` + f + `"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
		`<a:minorFont><a:latin typeface="` + f + `"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont></a:fontScheme>` +
		`<a:fmtScheme name="Student Services">` +
		`<a:fillStyleLst>` + solid + solid + solid + `</a:fillStyleLst>` +
		`<a:lnStyleLst>` + line + line + line + `</a:lnStyleLst>` +
		`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>` +
		`<a:bgFillStyleLst>` + solid + solid + solid + `</a:bgFillStyleLst>` +
		`</a:fmtScheme></a:themeElements></a:theme>`
}
