package pagegql

import (
	"context"

	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
)

type balanceData struct {
	UserAndCash struct {
		Cash struct {
			RemainCash int64 `json:"remainCash"`
		} `json:"cash"`
	} `json:"userAndCash"`
}

func (c *Client) Balance(ctx context.Context, s ports.Doer) (int64, error) {
	out, err := execute[balanceData](ctx, c, s, queryBalance, nil)
	if err != nil {
		return 0, err
	}
	return out.UserAndCash.Cash.RemainCash, nil
}

type newsData struct {
	MyNewsList struct {
		News []struct {
			LogName string `json:"logName"`
			Date    string `json:"date"`
			Scheme  string `json:"scheme"`
		} `json:"news"`
	} `json:"myNewsList"`
}

func (c *Client) News(ctx context.Context, s ports.Doer) ([]ports.NewsEntry, error) {
	out, err := execute[newsData](ctx, c, s, queryNews, map[string]any{
		"myNewsListInput": map[string]any{"tab": "ALL", "refresh": true},
	})
	if err != nil {
		return nil, err
	}
	entries := make([]ports.NewsEntry, 0, len(out.MyNewsList.News))
	for _, n := range out.MyNewsList.News {
		entries = append(entries, ports.NewsEntry{LogName: n.LogName, Date: n.Date, Scheme: n.Scheme})
	}
	return entries, nil
}

type drawData struct {
	DrawGotcha struct {
		Status string `json:"status"`
	} `json:"drawGotcha"`
}

func (c *Client) DrawReward(ctx context.Context, s ports.Doer, rewardID string) error {
	_, err := execute[drawData](ctx, c, s, mutationDrawReward, map[string]any{
		"input": map[string]any{"gotchaId": rewardID},
	})
	return err
}

type giftsData struct {
	TodayGiftList struct {
		List []struct {
			IsReceived bool   `json:"isReceived"`
			TicketUID  int64  `json:"ticketUid"`
			Scheme     string `json:"scheme"`
		} `json:"list"`
	} `json:"todayGiftList"`
}

func (c *Client) TodayGifts(ctx context.Context, s ports.Doer) ([]ports.Gift, error) {
	out, err := execute[giftsData](ctx, c, s, queryTodayGifts, nil)
	if err != nil {
		return nil, err
	}
	gifts := make([]ports.Gift, 0, len(out.TodayGiftList.List))
	for _, g := range out.TodayGiftList.List {
		gifts = append(gifts, ports.Gift{Received: g.IsReceived, TicketUID: g.TicketUID, Scheme: g.Scheme})
	}
	return gifts, nil
}

type receiveData struct {
	ReceiveFreeTicket struct {
		IsReceived  bool  `json:"isReceived"`
		TicketCount int64 `json:"ticketCount"`
	} `json:"receiveFreeTicket"`
}

func (c *Client) ReceiveGift(ctx context.Context, s ports.Doer, ticketUID int64) error {
	_, err := execute[receiveData](ctx, c, s, mutationReceiveGift, map[string]any{
		"input": map[string]any{"ticketUid": ticketUID, "type": "TodayGift"},
	})
	return err
}
