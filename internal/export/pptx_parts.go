package export

import (
	"encoding/xml"
	"strings"
	"text/template"
)

const (
	nsA = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`
	nsR = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	nsP = `xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

	relBase = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
	ctBase  = "application/vnd.openxmlformats-officedocument."

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

	emptySpTree = `<p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
		`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`
)

func xmlEscape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

func add(a, b int) int { return a + b }

func part(name, body string) *template.Template {
	return template.Must(template.New(name).Funcs(template.FuncMap{
		"xml": xmlEscape,
		"add": add,
	}).Parse(xmlHeader + body))
}

var pptxParts = []struct {
	name string
	tmpl *template.Template
}{
	{"[Content_Types].xml", contentTypesTmpl},
	{"_rels/.rels", rootRelsTmpl},
	{"docProps/core.xml", coreTmpl},
	{"docProps/app.xml", appTmpl},
	{"ppt/presentation.xml", presentationTmpl},
	{"ppt/_rels/presentation.xml.rels", presentationRelsTmpl},
	{"ppt/presProps.xml", presPropsTmpl},
	{"ppt/viewProps.xml", viewPropsTmpl},
	{"ppt/tableStyles.xml", tableStylesTmpl},
	{"ppt/slideMasters/slideMaster1.xml", masterTmpl},
	{"ppt/slideMasters/_rels/slideMaster1.xml.rels", masterRelsTmpl},
	{"ppt/slideLayouts/slideLayout1.xml", layoutTmpl},
	{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", layoutRelsTmpl},
	{"ppt/theme/theme1.xml", themeTmpl},
}

var contentTypesTmpl = part("content-types", `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`+
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`+
	`<Default Extension="xml" ContentType="application/xml"/>`+
	`<Default Extension="jpg" ContentType="image/jpeg"/>`+
	`<Override PartName="/ppt/presentation.xml" ContentType="`+ctBase+`presentationml.presentation.main+xml"/>`+
	`<Override PartName="/ppt/presProps.xml" ContentType="`+ctBase+`presentationml.presProps+xml"/>`+
	`<Override PartName="/ppt/viewProps.xml" ContentType="`+ctBase+`presentationml.viewProps+xml"/>`+
	`<Override PartName="/ppt/tableStyles.xml" ContentType="`+ctBase+`presentationml.tableStyles+xml"/>`+
	`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="`+ctBase+`presentationml.slideMaster+xml"/>`+
	`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="`+ctBase+`presentationml.slideLayout+xml"/>`+
	`<Override PartName="/ppt/theme/theme1.xml" ContentType="`+ctBase+`theme+xml"/>`+
	`{{range .Slides}}<Override PartName="/ppt/slides/slide{{.}}.xml" ContentType="`+ctBase+`presentationml.slide+xml"/>{{end}}`+
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`+
	`<Override PartName="/docProps/app.xml" ContentType="`+ctBase+`extended-properties+xml"/>`+
	`</Types>`)

var rootRelsTmpl = part("root-rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
	`<Relationship Id="rId1" Type="`+relBase+`officeDocument" Target="ppt/presentation.xml"/>`+
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>`+
	`<Relationship Id="rId3" Type="`+relBase+`extended-properties" Target="docProps/app.xml"/>`+
	`</Relationships>`)

var coreTmpl = part("core", `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" `+
	`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" `+
	`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`+
	`<dc:title>{{xml .Title}}</dc:title><dc:creator>slidex</dc:creator>`+
	`<dcterms:created xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:created>`+
	`<dcterms:modified xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:modified>`+
	`</cp:coreProperties>`)

var appTmpl = part("app", `<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">`+
	`<Application>slidex</Application><Slides>{{len .Slides}}</Slides>`+
	`</Properties>`)

var presentationTmpl = part("presentation", `<p:presentation `+nsA+` `+nsR+` `+nsP+` saveSubsetFonts="1">`+
	`<p:sldMasterIdLst><p:sldMasterId id="{{.MasterID}}" r:id="rId1"/></p:sldMasterIdLst>`+
	`<p:sldIdLst>{{$d := .}}{{range $i, $n := .Slides}}<p:sldId id="{{add $d.SlideID $i}}" r:id="rId{{add $d.SlideRel $i}}"/>{{end}}</p:sldIdLst>`+
	`<p:sldSz cx="{{.Width}}" cy="{{.Height}}" type="screen4x3"/>`+
	`<p:notesSz cx="{{.Height}}" cy="{{.Width}}"/>`+
	`</p:presentation>`)

var presentationRelsTmpl = part("presentation-rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
	`<Relationship Id="rId1" Type="`+relBase+`slideMaster" Target="slideMasters/slideMaster1.xml"/>`+
	`<Relationship Id="rId2" Type="`+relBase+`theme" Target="theme/theme1.xml"/>`+
	`<Relationship Id="rId3" Type="`+relBase+`presProps" Target="presProps.xml"/>`+
	`<Relationship Id="rId4" Type="`+relBase+`viewProps" Target="viewProps.xml"/>`+
	`<Relationship Id="rId5" Type="`+relBase+`tableStyles" Target="tableStyles.xml"/>`+
	`{{$d := .}}{{range $i, $n := .Slides}}<Relationship Id="rId{{add $d.SlideRel $i}}" Type="`+relBase+`slide" Target="slides/slide{{$n}}.xml"/>{{end}}`+
	`</Relationships>`)

var presPropsTmpl = part("pres-props", `<p:presentationPr `+nsA+` `+nsR+` `+nsP+`/>`)

var viewPropsTmpl = part("view-props", `<p:viewPr `+nsA+` `+nsR+` `+nsP+`/>`)

var tableStylesTmpl = part("table-styles", `<a:tblStyleLst `+nsA+` def="{5C22544A-7EE6-4342-B048-85BDC9FD1C3A}"/>`)

var masterTmpl = part("master", `<p:sldMaster `+nsA+` `+nsR+` `+nsP+`>`+
	`<p:cSld>`+emptySpTree+`</p:spTree></p:cSld>`+
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" `+
	`accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`+
	`<p:sldLayoutIdLst><p:sldLayoutId id="{{.LayoutID}}" r:id="rId1"/></p:sldLayoutIdLst>`+
	`<p:txStyles><p:titleStyle/><p:bodyStyle/><p:otherStyle/></p:txStyles>`+
	`</p:sldMaster>`)

var masterRelsTmpl = part("master-rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
	`<Relationship Id="rId1" Type="`+relBase+`slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`+
	`<Relationship Id="rId2" Type="`+relBase+`theme" Target="../theme/theme1.xml"/>`+
	`</Relationships>`)

var layoutTmpl = part("layout", `<p:sldLayout `+nsA+` `+nsR+` `+nsP+` type="blank" preserve="1">`+
	`<p:cSld name="Blank">`+emptySpTree+`</p:spTree></p:cSld>`+
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`+
	`</p:sldLayout>`)

var layoutRelsTmpl = part("layout-rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
	`<Relationship Id="rId1" Type="`+relBase+`slideMaster" Target="../slideMasters/slideMaster1.xml"/>`+
	`</Relationships>`)

var slideTmpl = part("slide", `<p:sld `+nsA+` `+nsR+` `+nsP+`>`+
	`<p:cSld>`+emptySpTree+
	`<p:pic><p:nvPicPr><p:cNvPr id="2" name="Picture {{.N}}"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
	`<p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
	`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="{{.Width}}" cy="{{.Height}}"/></a:xfrm>`+
	`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`+
	`</p:spTree></p:cSld>`+
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`+
	`</p:sld>`)

var slideRelsTmpl = part("slide-rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
	`<Relationship Id="rId1" Type="`+relBase+`slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`+
	`<Relationship Id="rId2" Type="`+relBase+`image" Target="../media/image{{.N}}.jpg"/>`+
	`</Relationships>`)

var themeTmpl = part("theme", `<a:theme `+nsA+` name="Office Theme"><a:themeElements>`+
	`<a:clrScheme name="Office">`+
	`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>`+
	`<a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>`+
	`<a:dk2><a:srgbClr val="1F497D"/></a:dk2>`+
	`<a:lt2><a:srgbClr val="EEECE1"/></a:lt2>`+
	`<a:accent1><a:srgbClr val="4F81BD"/></a:accent1>`+
	`<a:accent2><a:srgbClr val="C0504D"/></a:accent2>`+
	`<a:accent3><a:srgbClr val="9BBB59"/></a:accent3>`+
	`<a:accent4><a:srgbClr val="8064A2"/></a:accent4>`+
	`<a:accent5><a:srgbClr val="4BACC6"/></a:accent5>`+
	`<a:accent6><a:srgbClr val="F79646"/></a:accent6>`+
	`<a:hlink><a:srgbClr val="0000FF"/></a:hlink>`+
	`<a:folHlink><a:srgbClr val="800080"/></a:folHlink>`+
	`</a:clrScheme>`+
	`<a:fontScheme name="Office">`+
	`<a:majorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>`+
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>`+
	`</a:fontScheme>`+
	`<a:fmtScheme name="Office">`+
	`<a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst>`+
	`<a:lnStyleLst><a:ln w="9525"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="25400"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="38100"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>`+
	`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>`+
	`<a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst>`+
	`</a:fmtScheme>`+
	`</a:themeElements></a:theme>`)
