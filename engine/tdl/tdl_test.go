package tdl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sampleUTF8 = `<?xml version="1.0" encoding="UTF-8"?>
<TODOLIST PROJECTNAME="Home">
  <TASK TITLE="Buy milk" PRIORITY="5" STARTDATE="25570">
    <COMMENTS>2 litres</COMMENTS>
    <CATEGORY>Errands</CATEGORY>
    <TASK TITLE="Find wallet">
      <CATEGORY>Errands</CATEGORY>
    </TASK>
  </TASK>
  <TASK TITLE="Café visit"/>
</TODOLIST>`

func encodeUTF16(t *testing.T, s string, endian unicode.Endianness, bom unicode.BOMPolicy) []byte {
	t.Helper()
	out, _, err := transform.Bytes(unicode.UTF16(endian, bom).NewEncoder(), []byte(s))
	require.NoError(t, err)
	return out
}

func titles(nodes []TaskNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		v, _ := n.Source.Lookup("TITLE")
		out = append(out, v)
	}
	return out
}

func TestDecode(t *testing.T) {
	ctx := context.Background()

	t.Run("Should decode UTF-8 input", func(t *testing.T) {
		tree, err := Decode(ctx, []byte(sampleUTF8))
		require.NoError(t, err)
		assert.Equal(t, UTF8, tree.Encoding())
		assert.Equal(t, "TODOLIST", tree.Root().Tag)
	})

	t.Run("Should strip a UTF-8 byte order mark", func(t *testing.T) {
		tree, err := Decode(ctx, append([]byte{0xEF, 0xBB, 0xBF}, sampleUTF8...))
		require.NoError(t, err)
		assert.Equal(t, UTF8, tree.Encoding())
	})

	t.Run("Should yield the same fields for UTF-16LE with a byte order mark", func(t *testing.T) {
		utf8Tree, err := Decode(ctx, []byte(sampleUTF8))
		require.NoError(t, err)
		data := encodeUTF16(t, sampleUTF8, unicode.LittleEndian, unicode.UseBOM)
		require.Equal(t, []byte{0xFF, 0xFE}, data[:2])
		tree, err := Decode(ctx, data)
		require.NoError(t, err)
		assert.Equal(t, UTF16LE, tree.Encoding())
		assert.Equal(t, stripElements(utf8Tree.Tasks(PreferAttributes)), stripElements(tree.Tasks(PreferAttributes)))
	})

	t.Run("Should decode UTF-16BE without a byte order mark", func(t *testing.T) {
		data := encodeUTF16(t, sampleUTF8, unicode.BigEndian, unicode.IgnoreBOM)
		tree, err := Decode(ctx, data)
		require.NoError(t, err)
		assert.Equal(t, UTF16BE, tree.Encoding())
		assert.Equal(t, []string{"Buy milk", "Find wallet", "Café visit"}, titles(tree.Tasks(PreferAttributes)))
	})

	t.Run("Should honor a declared legacy charset", func(t *testing.T) {
		data := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><TODOLIST><TASK TITLE=\"Caf\xe9\"/></TODOLIST>")
		tree, err := Decode(ctx, data)
		require.NoError(t, err)
		assert.Equal(t, []string{"Café"}, titles(tree.Tasks(PreferAttributes)))
	})

	t.Run("Should fail cleanly on empty input", func(t *testing.T) {
		_, err := Decode(ctx, nil)
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("Should collect diagnostics from every attempt on malformed input", func(t *testing.T) {
		_, err := Decode(ctx, []byte("<TODOLIST><TASK></TODOLIST>"))
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		require.Len(t, decodeErr.Attempts, 3)
		assert.Equal(t, UTF8, decodeErr.Attempts[0].Encoding)
		assert.Equal(t, UTF16LE, decodeErr.Attempts[1].Encoding)
		assert.Equal(t, UTF16BE, decodeErr.Attempts[2].Encoding)
		assert.Contains(t, err.Error(), "UTF-16BE")
	})

	t.Run("Should reject a document with a second top-level element", func(t *testing.T) {
		doc := `<TODOLIST><TASK TITLE="first"/></TODOLIST><TASK TITLE="trailing"/>`
		tree, err := Decode(ctx, []byte(doc))
		assert.Nil(t, tree)
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		require.Len(t, decodeErr.Attempts, len(Candidates))
		assert.ErrorIs(t, decodeErr.Attempts[0].Err, ErrMultipleRoots)
		assert.Contains(t, err.Error(), "<TASK> follows <TODOLIST>")
	})

	t.Run("Should accept comments and processing instructions around the root", func(t *testing.T) {
		doc := "<?xml version=\"1.0\"?>\n<!-- export -->\n<TODOLIST><TASK TITLE=\"a\"/></TODOLIST>\n<!-- end -->\n"
		tree, err := Decode(ctx, []byte(doc))
		require.NoError(t, err)
		assert.Len(t, tree.Tasks(PreferAttributes), 1)
	})

	t.Run("Should reject whitespace with no root element", func(t *testing.T) {
		_, err := Decode(ctx, []byte("   \n"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoRoot))
	})
}

// stripElements drops the element handle so trees from different decodes compare by value.
func stripElements(nodes []TaskNode) []TaskNode {
	out := make([]TaskNode, len(nodes))
	for i, n := range nodes {
		n.el = nil
		out[i] = n
	}
	return out
}

func TestTree_Tasks(t *testing.T) {
	ctx := context.Background()

	t.Run("Should find nested tasks in document order", func(t *testing.T) {
		tree, err := Decode(ctx, []byte(sampleUTF8))
		require.NoError(t, err)
		nodes := tree.Tasks(PreferAttributes)
		require.Len(t, nodes, 3)
		assert.Equal(t, []string{"Buy milk", "Find wallet", "Café visit"}, titles(nodes))
		for i, n := range nodes {
			assert.Equal(t, i, n.Index)
		}
	})

	t.Run("Should read comments and categories outside the attribute collection", func(t *testing.T) {
		tree, err := Decode(ctx, []byte(sampleUTF8))
		require.NoError(t, err)
		first := tree.Tasks(PreferAttributes)[0]
		assert.Equal(t, KindAttributes, first.Source.Kind)
		require.NotNil(t, first.Comments)
		assert.Equal(t, "2 litres", *first.Comments)
		assert.Equal(t, []string{"Errands"}, first.Categories)
		_, hasComments := first.Source.Lookup("COMMENTS")
		assert.False(t, hasComments)
		assert.Nil(t, tree.Tasks(PreferAttributes)[2].Comments)
	})

	t.Run("Should use child elements when there are no attributes", func(t *testing.T) {
		doc := `<TODOLIST><TASK><title>Write report</title><STARTDATE>2024-01-15</STARTDATE><comments>draft</comments></TASK></TODOLIST>`
		tree, err := Decode(ctx, []byte(doc))
		require.NoError(t, err)
		node := tree.Tasks(PreferAttributes)[0]
		assert.Equal(t, KindElements, node.Source.Kind)
		assert.Equal(t, map[string]string{"title": "Write report", "STARTDATE": "2024-01-15"}, node.Source.Fields)
		require.NotNil(t, node.Comments)
		assert.Equal(t, "draft", *node.Comments)
	})

	t.Run("Should resolve mixed nodes by the configured precedence", func(t *testing.T) {
		doc := `<TODOLIST><TASK TITLE="from attrs"><TITLE>from elems</TITLE></TASK></TODOLIST>`
		tree, err := Decode(ctx, []byte(doc))
		require.NoError(t, err)

		attrs := tree.Tasks(PreferAttributes)[0]
		assert.Equal(t, KindAttributes, attrs.Source.Kind)
		assert.Equal(t, []string{"from attrs"}, titles([]TaskNode{attrs}))

		elems := tree.Tasks(PreferElements)[0]
		assert.Equal(t, KindElements, elems.Source.Kind)
		assert.Equal(t, []string{"from elems"}, titles([]TaskNode{elems}))
	})

	t.Run("Should keep attributes when preferring elements but no field element exists", func(t *testing.T) {
		doc := `<TODOLIST><TASK TITLE="only attrs"><CATEGORY>A</CATEGORY></TASK></TODOLIST>`
		tree, err := Decode(ctx, []byte(doc))
		require.NoError(t, err)
		assert.Equal(t, KindAttributes, tree.Tasks(PreferElements)[0].Source.Kind)
	})

	t.Run("Should keep raw category text including empty names", func(t *testing.T) {
		doc := `<TODOLIST><TASK TITLE="x"><CATEGORY> Work </CATEGORY><CATEGORY></CATEGORY><category>home</category></TASK></TODOLIST>`
		tree, err := Decode(ctx, []byte(doc))
		require.NoError(t, err)
		assert.Equal(t, []string{" Work ", "", "home"}, tree.Tasks(PreferAttributes)[0].Categories)
	})

	t.Run("Should serialize the raw node for diagnostics", func(t *testing.T) {
		tree, err := Decode(ctx, []byte(`<TODOLIST><TASK PRIORITY="3"/></TODOLIST>`))
		require.NoError(t, err)
		assert.Contains(t, tree.Tasks(PreferAttributes)[0].Raw(), `PRIORITY="3"`)
	})
}

func TestParsePrecedence(t *testing.T) {
	t.Run("Should accept known values and default to attributes", func(t *testing.T) {
		p, err := ParsePrecedence("Elements")
		require.NoError(t, err)
		assert.Equal(t, PreferElements, p)
		p, err = ParsePrecedence("")
		require.NoError(t, err)
		assert.Equal(t, PreferAttributes, p)
		_, err = ParsePrecedence("both")
		require.Error(t, err)
	})
}
