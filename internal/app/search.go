package app

import (
	"context"
	"strconv"
	"strings"

	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
)

type SeriesHit struct {
	SeriesID int64  `json:"series_id"`
	Cover    string `json:"cover"`
	Title    string `json:"title"`
	Row1     string `json:"row_1"`
	Row2     string `json:"row_2"`
}

type SearchResult struct {
	Data []SeriesHit `json:"data"`
	More bool        `json:"more"`
}

// CatalogService fait les recherches avec la session anonyme.
type CatalogService struct {
	remote ports.CatalogRemote
	anon   ports.Doer
}

func NewCatalogService(remote ports.CatalogRemote, anon ports.Doer) *CatalogService {
	return &CatalogService{remote: remote, anon: anon}
}

func (c *CatalogService) Search(ctx context.Context, keyword string, page int) (SearchResult, error) {
	res, err := c.remote.Search(ctx, c.anon, keyword, page)
	if err != nil {
		return SearchResult{}, err
	}
	out := SearchResult{Data: make([]SeriesHit, 0, len(res.Items)), More: !res.IsEnd}
	for _, item := range res.Items {
		raw, err := GetParam(item.Scheme, "series_id")
		if err != nil {
			return SearchResult{}, err
		}
		seriesID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return SearchResult{}, &ports.ParamExtractionError{Key: "series_id", Ref: item.Scheme}
		}
		cover, err := GetParam(item.Thumbnail, "kid")
		if err != nil {
			return SearchResult{}, err
		}
		out.Data = append(out.Data, SeriesHit{
			SeriesID: seriesID,
			Cover:    cover,
			Title:    item.Row1,
			Row1:     strings.Join(item.Row2, "·"),
			Row2:     strings.Join(item.MetaList, "·"),
		})
	}
	return out, nil
}
