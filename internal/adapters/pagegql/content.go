package pagegql

import (
	"context"
	"net/http"

	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
)

var (
	_ ports.ContentRemote = (*Client)(nil)
	_ ports.AccountRemote = (*Client)(nil)
	_ ports.CatalogRemote = (*Client)(nil)
)

type myTicket struct {
	TicketOwnCount    int64 `json:"ticketOwnCount"`
	TicketRentalCount int64 `json:"ticketRentalCount"`
	Waitfree          *struct {
		ChargedAt string `json:"chargedAt"`
	} `json:"waitfree"`
}

func (t myTicket) status() ports.TicketStatus {
	st := ports.TicketStatus{OwnCount: t.TicketOwnCount, RentalCount: t.TicketRentalCount}
	if t.Waitfree != nil {
		st.WaitFreeChargedAt = t.Waitfree.ChargedAt
	}
	return st
}

type checkFreeTicketData struct {
	ContentCheckFreeTicket struct {
		List []struct {
			Count int64 `json:"count"`
		} `json:"list"`
	} `json:"contentCheckFreeTicket"`
}

// CheckFreeTicket déclenche l'attribution des tickets gratuits de la série.
func (c *Client) CheckFreeTicket(ctx context.Context, s ports.Doer, seriesID int64) error {
	_, err := execute[checkFreeTicketData](ctx, c, s, queryCheckFreeTicket, map[string]any{"seriesId": seriesID})
	return err
}

type myTicketsData struct {
	ContentMyTicket myTicket `json:"contentMyTicket"`
}

func (c *Client) MyTickets(ctx context.Context, s ports.Doer, seriesID int64) (ports.TicketStatus, error) {
	out, err := execute[myTicketsData](ctx, c, s, queryMyTickets, map[string]any{
		"seriesId":        seriesID,
		"includeWaitfree": true,
	})
	if err != nil {
		return ports.TicketStatus{}, err
	}
	return out.ContentMyTicket.status(), nil
}

type readyData struct {
	ContentMyTicket  myTicket `json:"contentMyTicket"`
	ReadyToUseTicket struct {
		Process   string `json:"process"`
		Available *struct {
			TicketOwnType    *string `json:"ticketOwnType"`
			TicketRentalType *string `json:"ticketRentalType"`
		} `json:"available"`
	} `json:"readyToUseTicket"`
}

func (c *Client) ReadyToUseTicket(ctx context.Context, s ports.Doer, seriesID, singleID int64) (ports.Readiness, error) {
	out, err := execute[readyData](ctx, c, s, queryReadyToUse, map[string]any{
		"seriesId":        seriesID,
		"productId":       singleID,
		"from":            "Viewer",
		"nonstopWatching": false,
		"pickExactly":     true,
		"popupOn":         false,
		"includeWaitfree": true,
	})
	if err != nil {
		return ports.Readiness{}, err
	}
	r := ports.Readiness{
		Status:  out.ContentMyTicket.status(),
		Process: out.ReadyToUseTicket.Process,
	}
	if av := out.ReadyToUseTicket.Available; av != nil {
		if av.TicketOwnType != nil {
			r.OwnType = *av.TicketOwnType
		}
		if av.TicketRentalType != nil {
			r.RentalType = *av.TicketRentalType
		}
	}
	return r, nil
}

type useTicketData struct {
	UseTicket struct {
		WaitfreeChargedAt *string `json:"waitfreeChargedAt"`
	} `json:"useTicket"`
}

func (c *Client) UseTicket(ctx context.Context, s ports.Doer, singleID int64, ticketType string) (ports.UseResult, error) {
	out, err := execute[useTicketData](ctx, c, s, mutationUseTicket, map[string]any{
		"input": map[string]any{"productId": singleID, "ticketType": ticketType},
	})
	if err != nil {
		return ports.UseResult{}, err
	}
	var res ports.UseResult
	if out.UseTicket.WaitfreeChargedAt != nil {
		res.WaitFreeChargedAt = *out.UseTicket.WaitfreeChargedAt
	}
	return res, nil
}

type productRef struct {
	ProductID int64 `json:"productId"`
}

type viewerData struct {
	ViewerInfo struct {
		Item struct {
			Title string `json:"title"`
		} `json:"item"`
		ViewerData struct {
			Typename          string `json:"__typename"`
			ImageDownloadData *struct {
				Files []struct {
					Size      int64  `json:"size"`
					SecureURL string `json:"secureUrl"`
				} `json:"files"`
			} `json:"imageDownloadData"`
			ContentsList []struct {
				ChapterID int64  `json:"chapterId"`
				ContentID int64  `json:"contentId"`
				SecureURL string `json:"secureUrl"`
			} `json:"contentsList"`
		} `json:"viewerData"`
		PrevItem *productRef `json:"prevItem"`
		NextItem *productRef `json:"nextItem"`
	} `json:"viewerInfo"`
}

func (c *Client) Viewer(ctx context.Context, s ports.Doer, seriesID, singleID int64) (ports.ViewerInfo, error) {
	out, err := execute[viewerData](ctx, c, s, queryViewer, map[string]any{
		"seriesId":  seriesID,
		"productId": singleID,
	})
	if err != nil {
		return ports.ViewerInfo{}, err
	}
	vi := out.ViewerInfo
	info := ports.ViewerInfo{
		Title:    vi.Item.Title,
		Typename: vi.ViewerData.Typename,
	}
	if vi.ViewerData.ImageDownloadData != nil {
		for _, f := range vi.ViewerData.ImageDownloadData.Files {
			info.Files = append(info.Files, ports.ViewerFile{Size: f.Size, SecureURL: f.SecureURL})
		}
	}
	for _, ct := range vi.ViewerData.ContentsList {
		info.Contents = append(info.Contents, ports.ViewerText{ChapterID: ct.ChapterID, ContentID: ct.ContentID, SecureURL: ct.SecureURL})
	}
	if vi.PrevItem != nil {
		id := vi.PrevItem.ProductID
		info.Prev = &id
	}
	if vi.NextItem != nil {
		id := vi.NextItem.ProductID
		info.Next = &id
	}
	return info, nil
}

// RefreshToken fait un HEAD sur le site: le serveur renvoie un nouveau
// cookie de session, capté par le jar du compte.
func (c *Client) RefreshToken(ctx context.Context, s ports.Doer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.siteURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
