package pagegql

import (
	"context"

	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
)

type searchData struct {
	SearchKeyword struct {
		List []struct {
			Typename  string   `json:"__typename"`
			Thumbnail string   `json:"thumbnail"`
			Row1      string   `json:"row1"`
			Row2      []string `json:"row2"`
			Row3      *struct {
				MetaList []string `json:"metaList"`
			} `json:"row3"`
			Scheme string `json:"scheme"`
		} `json:"list"`
		IsEnd bool `json:"isEnd"`
	} `json:"searchKeyword"`
}

// Search ne garde que les entrées NormalListViewItem.
func (c *Client) Search(ctx context.Context, s ports.Doer, keyword string, page int) (ports.SearchPage, error) {
	out, err := execute[searchData](ctx, c, s, querySearch, map[string]any{
		"searchKeywordInput": map[string]any{"keyword": keyword, "page": page},
	})
	if err != nil {
		return ports.SearchPage{}, err
	}
	res := ports.SearchPage{IsEnd: out.SearchKeyword.IsEnd, Items: []ports.SearchItem{}}
	for _, it := range out.SearchKeyword.List {
		if it.Typename != "NormalListViewItem" {
			continue
		}
		item := ports.SearchItem{Thumbnail: it.Thumbnail, Row1: it.Row1, Row2: it.Row2, Scheme: it.Scheme}
		if it.Row3 != nil {
			item.MetaList = it.Row3.MetaList
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}
