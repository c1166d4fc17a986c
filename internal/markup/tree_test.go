// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package markup

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<VAST version="3.0" xmlns:ext="urn:example">
  <!-- waterfall -->
  <Ad id="first" sequence="1">
    <InLine>
      <AdTitle>  Hello  </AdTitle>
      <Error><![CDATA[ http://err.example/?c=[ERRORCODE] ]]></Error>
      <Impression>http://imp.example/1</Impression>
      <Impression>http://imp.example/2</Impression>
      <ext:Custom>ignored</ext:Custom>
      <Flag>TRUE</Flag>
      <Count>42</Count>
      <Empty>   </Empty>
    </InLine>
  </Ad>
  <Ad id="second"/>
</VAST>`

func TestParse_Structure(t *testing.T) {
	doc, err := ParseString(sampleDoc)
	require.NoError(t, err)

	vast := doc.Child("VAST")
	require.NotNil(t, vast)
	assert.Equal(t, "vAST", vast.Name)

	version, ok := vast.Attr("version")
	require.True(t, ok)
	assert.Equal(t, KindNumber, version.Kind)
	assert.Equal(t, 3.0, version.Number)
	assert.Equal(t, "3.0", version.String())

	ads := vast.Children("ad")
	require.Len(t, ads, 2)
	assert.Equal(t, "first", ads[0].AttrString("id"))
	assert.Equal(t, "second", ads[1].AttrString("id"))

	inline := ads[0].Child("InLine")
	require.NotNil(t, inline)
	assert.Len(t, inline.Children("impression"), 2)
	assert.Nil(t, inline.Child("custom"), "prefixed elements are skipped")
}

func TestParse_TextHandling(t *testing.T) {
	doc, err := ParseString(sampleDoc)
	require.NoError(t, err)
	inline := doc.Path("VAST", "Ad", "InLine")

	assert.Equal(t, "Hello", inline.Child("adTitle").TextString())

	errText := inline.Child("error").KeyValue()
	assert.Equal(t, KindString, errText.Kind)
	assert.Equal(t, " http://err.example/?c=[ERRORCODE] ", errText.Raw, "CDATA is kept verbatim")
	assert.Equal(t, "http://err.example/?c=[ERRORCODE]", errText.String())

	flag := inline.Child("flag").KeyValue()
	assert.Equal(t, KindBool, flag.Kind)
	assert.True(t, flag.Bool)

	count := inline.Child("count").KeyValue()
	assert.Equal(t, KindNumber, count.Kind)
	assert.Equal(t, 42.0, count.Number)

	empty := inline.Child("empty")
	require.NotNil(t, empty)
	assert.True(t, empty.KeyValue().IsNull())
}

func TestParse_Errors(t *testing.T) {
	_, err := ParseString("<VAST><Ad></VAST>")
	assert.Error(t, err)

	_, err = ParseString("")
	assert.Error(t, err)

	_, err = ParseString("just text")
	assert.Error(t, err)
}

func TestParse_DeclaredEncoding(t *testing.T) {
	latin1 := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<VAST version=\"2.0\"><Ad id=\"caf\xe9\"><InLine><AdTitle>Caf\xe9 cr\xe8me</AdTitle></InLine></Ad></VAST>"

	doc, err := ParseString(latin1)
	require.NoError(t, err)
	ad := doc.Path("VAST", "Ad")
	require.NotNil(t, ad)
	assert.Equal(t, "café", ad.AttrString("id"))
	assert.Equal(t, "Café crème", ad.Path("InLine", "AdTitle").TextString())

	_, err = ParseString(`<?xml version="1.0" encoding="x-no-such-charset"?><VAST/>`)
	require.Error(t, err)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
	}{
		{"", KindNull},
		{" \n\t", KindNull},
		{"true", KindBool},
		{"False", KindBool},
		{"12.5", KindNumber},
		{"-3", KindNumber},
		{"1e3", KindNumber},
		{"Inf", KindString},
		{"NaN", KindString},
		{"0x1F", KindString},
		{"00:00:30", KindString},
		{"50%", KindString},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.kind, Coerce(tt.in).Kind)
		})
	}
}

func TestDecapitalize(t *testing.T) {
	assert.Equal(t, "vAST", Decapitalize("VAST"))
	assert.Equal(t, "inLine", Decapitalize("InLine"))
	assert.Equal(t, "already", Decapitalize("already"))
	assert.Equal(t, "", Decapitalize(""))
}

func TestNode_Map(t *testing.T) {
	doc, err := ParseString(`<Root a="1"><Item>x</Item><Item>y</Item><One b="true"/></Root>`)
	require.NoError(t, err)

	want := map[string]any{
		"@a": 1.0,
		"item": []any{
			map[string]any{"keyValue": "x"},
			map[string]any{"keyValue": "y"},
		},
		"one": map[string]any{"@b": true},
	}
	if diff := cmp.Diff(want, doc.Child("root").Map()); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"item", "one"}, doc.Child("root").Keys())
}

func TestNilNodeAccessorsAreSafe(t *testing.T) {
	var n *Node
	assert.Nil(t, n.Child("x"))
	assert.Nil(t, n.Children("x"))
	assert.Nil(t, n.Path("a", "b"))
	assert.Equal(t, "", n.AttrString("x"))
	assert.True(t, n.KeyValue().IsNull())
}
