package details

import (
	"strings"
	"testing"

	"intercept/internal/editor"
	"intercept/internal/intent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIntent() *intent.Intent {
	in := intent.New(intent.ActionView)
	in.Data = "https://example.com/a_b"
	in.Type = "text/html"
	in.AddCategory(intent.CategoryBrowsable)
	in.Flags = 0x10000000 | 0x1
	in.PutExtra("foo", intent.StringValue("bar"))
	in.PutExtra("ids", intent.ListValue(intent.IntValue(1), intent.IntValue(2)))
	return in
}

func TestPlain(t *testing.T) {
	rep := Report{
		Intent: sampleIntent(),
		Matches: editor.Matches{Count: 1, Candidates: []editor.Candidate{
			{Label: "Browser", Package: "com.browser", Component: "com.browser.Main"},
		}},
	}
	out := Plain(rep)

	lines := strings.Split(out, "\n")
	assert.Equal(t, intent.Encode(rep.Intent), lines[0])
	assert.Equal(t, segmentRule, lines[1])
	for _, want := range []string{
		"Action: android.intent.action.VIEW",
		"Data: https://example.com/a_b",
		"MIME Type: text/html",
		"Categories:\nandroid.intent.category.BROWSABLE\n",
		"Flags:\nFLAG_GRANT_READ_URI_PERMISSION\nFLAG_RECEIVER_FOREGROUND\n",
		"Extras:\n1: Type: string\nKey: foo\nValue: bar\n",
		"2: Type: list\nKey: ids\nList:\n1\n2\n",
		"Matching Activities:\nBrowser (com.browser - com.browser.Main)\n",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, titleResult)
}

func TestPlain_NoFlagsNoMatches(t *testing.T) {
	out := Plain(Report{Intent: intent.New("a")})
	assert.Contains(t, out, "Flags:\nNone\n")
	assert.Contains(t, out, "Matching Activities:\nNone\n")
	assert.NotContains(t, out, "Extras:")
	assert.NotContains(t, out, "Data:")
}

func TestPlain_LastResult(t *testing.T) {
	reply := intent.New("ignored.action")
	reply.Data = "content://contacts/1"
	reply.Flags = 0x1
	rep := Report{
		Intent: intent.New("a"),
		Result: &editor.Result{Code: editor.ResultOK, Intent: reply},
	}
	out := Plain(rep)

	idx := strings.Index(out, "Last Result:")
	require.NotEqual(t, -1, idx)
	section := out[idx:]
	assert.Contains(t, section, "Result Code: -1 (RESULT_OK)")
	assert.Contains(t, section, "Data: content://contacts/1")
	assert.NotContains(t, section, "Action:")
	assert.NotContains(t, section, "Flags:")
}

func TestRender_ExtractionErrorIsLocal(t *testing.T) {
	in := intent.New("a")
	in.PutExtra("bad", intent.InvalidValue("parcel read failed"))
	in.PutExtra("good", intent.LongValue(7))
	in.PutExtra("nested", intent.ListValue(intent.StringValue("x"), intent.Value{}))

	out, errs := Render(Report{Intent: in}, false)
	require.Len(t, errs, 2)

	var ee *ExtrasExtractionError
	require.ErrorAs(t, errs[0], &ee)
	assert.Equal(t, "bad", ee.Key)
	assert.Equal(t, "parcel read failed", ee.Reason)

	assert.Contains(t, out, "! 1 Error extracting extras: bad")
	assert.Contains(t, out, "2: Type: long\nKey: good\nValue: 7\n")
	assert.Contains(t, out, "! 3 Error extracting extras: nested")
}

func TestMarkdown(t *testing.T) {
	rep := Report{Intent: sampleIntent()}
	out := Markdown(rep)

	assert.True(t, strings.HasPrefix(out, "```\n"+intent.Encode(rep.Intent)+"\n```\n"))
	assert.Contains(t, out, `**Data** https://example.com/a\_b`)
	assert.Contains(t, out, "**Flags**")
	assert.Contains(t, out, "\n---\n")
}

func TestForModel(t *testing.T) {
	results := editor.NewResultForwarder()
	m, err := editor.Load(sampleIntent(), results)
	require.NoError(t, err)
	results.Record(editor.ResultCanceled, nil)

	r := editor.ResolverFunc(func(*intent.Intent) []editor.Candidate {
		return []editor.Candidate{
			{Label: "Me", Package: "self"},
			{Label: "Viewer", Package: "com.viewer", Component: "com.viewer.V"},
		}
	})
	rep := ForModel(m, r, "self")
	assert.Equal(t, 1, rep.Matches.Count)
	require.NotNil(t, rep.Result)
	assert.Equal(t, editor.ResultCanceled, rep.Result.Code)
	assert.True(t, rep.Intent.Extras.Has("ids"), "recovered extras shown")

	out := Plain(rep)
	assert.Contains(t, out, "Viewer (com.viewer - com.viewer.V)")
	assert.NotContains(t, out, "Me (self")
	assert.Contains(t, out, "Result Code: 0 (RESULT_CANCELED)")
}

func TestForModel_ChangesSection(t *testing.T) {
	m, err := editor.Load(sampleIntent(), nil)
	require.NoError(t, err)

	rep := ForModel(m, nil, "self")
	assert.Nil(t, rep.Initial)
	assert.NotContains(t, Plain(rep), titleChanges)

	m.SetAction(intent.ActionSend)
	rep = ForModel(m, nil, "self")
	require.NotNil(t, rep.Initial)

	out := Plain(rep)
	assert.Contains(t, out, "Changes:\n- action=android.intent.action.VIEW\n+ action=android.intent.action.SEND\n")
	assert.Contains(t, Markdown(rep), "```diff\n- action=android.intent.action.VIEW\n")

	require.NoError(t, m.Reset())
	assert.NotContains(t, Plain(ForModel(m, nil, "self")), titleChanges)
}
