package arxiv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "socialfetch/pkg/errors"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title type="html">ArXiv Query</title>
  <opensearch:totalResults>1234</opensearch:totalResults>
  <opensearch:startIndex>0</opensearch:startIndex>
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <updated>2023-08-02T00:41:18Z</updated>
    <published>2017-06-12T17:57:34Z</published>
    <title>Attention Is All
      You Need</title>
    <summary>  The dominant sequence transduction models
  are based on complex recurrent networks.  </summary>
    <author><name>Ashish Vaswani</name></author>
    <author><name> Noam   Shazeer </name></author>
    <link href="http://arxiv.org/abs/1706.03762v7" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1706.03762v7" rel="related" type="application/pdf"/>
    <arxiv:primary_category term="cs.CL"/>
    <category term="cs.CL" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2101.00001v1</id>
    <title>No pdf link</title>
    <summary>x</summary>
  </entry>
  <entry>
    <id>urn:custom:42</id>
    <title>Odd id</title>
  </entry>
</feed>`

func TestParseFeed(t *testing.T) {
	total, entries, err := ParseFeed([]byte(sampleFeed))
	require.NoError(t, err)
	assert.Equal(t, 1234, total)
	require.Len(t, entries, 3)

	e := entries[0]
	assert.Equal(t, "Attention Is All You Need", e.Title)
	assert.Equal(t, "1706.03762v7", e.ArxivID)
	assert.Equal(t, "http://arxiv.org/abs/1706.03762v7", e.IDURL)
	assert.Equal(t, "The dominant sequence transduction models are based on complex recurrent networks.", e.Summary)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, e.Authors)
	assert.Equal(t, []string{"cs.CL", "cs.LG"}, e.Categories)
	assert.Equal(t, "http://arxiv.org/pdf/1706.03762v7", e.PDFURL)
	assert.Equal(t, "2017-06-12T17:57:34Z", e.Published)
	assert.Equal(t, StatusPending, e.DownloadStatus)

	assert.Equal(t, "http://arxiv.org/pdf/2101.00001v1", entries[1].PDFURL, "falls back to rewriting /abs/")

	assert.Equal(t, "urn:custom:42", entries[2].ArxivID)
	assert.Equal(t, "", entries[2].PDFURL)
}

func TestParseFeedBadTotal(t *testing.T) {
	feed := `<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/"><opensearch:totalResults>lots</opensearch:totalResults></feed>`
	total, entries, err := ParseFeed([]byte(feed))
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, entries)
}

func TestParseFeedMalformed(t *testing.T) {
	_, _, err := ParseFeed([]byte("<feed><entry>"))
	assert.True(t, errs.Is(err, errs.ErrorTypeParsing))
}
