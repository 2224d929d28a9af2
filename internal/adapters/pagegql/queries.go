package pagegql

const queryCheckFreeTicket = `query ticketCheck($seriesId: Long!) {
	contentCheckFreeTicket(seriesId: $seriesId) { list { count } }
}`

const queryMyTickets = `query myTickets($seriesId: Long!, $includeWaitfree: Boolean) {
	contentMyTicket(seriesId: $seriesId, includeWaitfree: $includeWaitfree) {
		ticketOwnCount ticketRentalCount waitfree { chargedAt }
	}
}`

const queryReadyToUse = `query ticketReady($seriesId: Long!, $productId: Long!, $from: QueryFromPage, $nonstopWatching: Boolean, $pickExactly: Boolean, $popupOn: Boolean, $includeWaitfree: Boolean) {
	contentMyTicket(seriesId: $seriesId, includeWaitfree: $includeWaitfree) {
		ticketOwnCount ticketRentalCount waitfree { chargedAt }
	}
	readyToUseTicket(seriesId: $seriesId, productId: $productId, from: $from, nonstopWatching: $nonstopWatching, pickExactly: $pickExactly, popupOn: $popupOn) {
		process available { ticketOwnType ticketRentalType }
	}
}`

const mutationUseTicket = `mutation useTicket($input: TicketUseMutationInput!) {
	useTicket(input: $input) { waitfreeChargedAt }
}`

const queryViewer = `query viewer($seriesId: Long!, $productId: Long!) {
	viewerInfo(seriesId: $seriesId, productId: $productId) {
		item { title }
		viewerData {
			__typename
			... on ImageViewerData { imageDownloadData { files { size secureUrl } } }
			... on TextViewerData { contentsList { chapterId contentId secureUrl } }
		}
		prevItem { productId }
		nextItem { productId }
	}
}`

const queryBalance = `query balance {
	userAndCash { cash { remainCash } }
}`

const queryNews = `query gotchas($myNewsListInput: MyNewsListInput) {
	myNewsList(myNewsListInput: $myNewsListInput) { news { logName date scheme } }
}`

const mutationDrawReward = `mutation drawGotcha($input: DrawGotchaInput!) {
	drawGotcha(input: $input) { status }
}`

const queryTodayGifts = `query tickets {
	todayGiftList { list { isReceived ticketUid scheme } }
}`

const mutationReceiveGift = `mutation receiveTicket($input: TicketFreeMutationInput!) {
	receiveFreeTicket(input: $input) { isReceived ticketCount }
}`

const querySearch = `query searchKeyword($searchKeywordInput: SearchKeywordInput!) {
	searchKeyword(searchKeywordInput: $searchKeywordInput) {
		list {
			__typename
			... on NormalListViewItem { thumbnail row1 row2 row3 { metaList } scheme }
		}
		isEnd
	}
}`
