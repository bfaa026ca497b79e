package dom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const fixture = `<html><body>
<div class="card">
  <p class="line">first<br>second</p>
  <span class="hidden" style="display:none">secret</span>
  <a class="next disabled" href="#">Next</a>
  <button id="go" disabled>Go</button>
  <button id="ok">Ok</button>
</div>
</body></html>`

func TestSelectionFindAndText(t *testing.T) {
	root, err := FromHTML(fixture)
	require.NoError(t, err)

	lines, err := root.Find(".card .line")
	require.NoError(t, err)
	require.Len(t, lines, 1)

	text, err := lines[0].Text()
	require.NoError(t, err)
	require.Equal(t, "first\nsecond", text)

	raw, err := lines[0].TextContent()
	require.NoError(t, err)
	require.Equal(t, "firstsecond", raw)

	missing, err := root.Find(".nope")
	require.NoError(t, err)
	require.Empty(t, missing)
}

func TestSelectionAttr(t *testing.T) {
	root, err := FromHTML(fixture)
	require.NoError(t, err)

	links, _ := root.Find("a.next")
	require.Len(t, links, 1)

	href, ok, err := links[0].Attr("href")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "#", href)

	_, ok, _ = links[0].Attr("data-missing")
	require.False(t, ok)
}

func TestStaticControl(t *testing.T) {
	root, err := FromHTML(fixture)
	require.NoError(t, err)

	tests := []struct {
		selector string
		enabled  bool
	}{
		{"a.next", false},
		{"#go", false},
		{"#ok", true},
	}
	for _, tt := range tests {
		nodes, _ := root.Find(tt.selector)
		require.Len(t, nodes, 1, tt.selector)
		ctl := NewControl(nodes[0].(*Selection))
		enabled, err := ctl.Enabled()
		require.NoError(t, err)
		require.Equal(t, tt.enabled, enabled, tt.selector)
	}

	nodes, _ := root.Find("#ok")
	ctl := NewControl(nodes[0].(*Selection))
	fired := false
	ctl.OnClick = func() error {
		fired = true
		return nil
	}
	require.NoError(t, ctl.Input("kuala lumpur"))
	require.NoError(t, ctl.Click())
	require.True(t, fired)
	require.Equal(t, 1, ctl.Clicks)
	require.Equal(t, "kuala lumpur", ctl.Value)
}
