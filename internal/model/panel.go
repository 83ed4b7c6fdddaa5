package model

// Rank-change categories relative to the prior year in the same legislature.
const (
	RankChangeFirstYear = "first_year"
	RankChangeIncrease  = "increase"
	RankChangeNone      = "no_change"
	RankChangeDecrease  = "decrease"
)

// Local-government overlap categories.
const (
	OverlapFull    = "full"
	OverlapPartial = "partial"
	OverlapNone    = "none"
)

// PersonYear is one person observed in one calendar year of one legislature.
type PersonYear struct {
	PersonID           int       `json:"person_id" csv:"person_id"`
	Surname            string    `json:"surname" csv:"surnames"`
	Given              string    `json:"given" csv:"given_names"`
	Legislature        string    `json:"legislature" csv:"legis"`
	LegisClock         int       `json:"legis_clock" csv:"legis_clock"`
	Year               int       `json:"year" csv:"year"`
	MultiLegis         int       `json:"multi_legis_parl" csv:"multi_legis_parl"`
	Senate             int       `json:"senate" csv:"senate"`
	Constituency       string    `json:"constit" csv:"constit"`
	Region             int       `json:"h_region" csv:"h_region"`
	Seniority          int       `json:"senior" csv:"senior"`
	SeniorityCategory  string    `json:"senior_cat" csv:"senior_cat"`
	StartParty         string    `json:"start_party" csv:"start_party"`
	PartySize          string    `json:"p_size" csv:"p_size"`
	PartyEthnic        int       `json:"p_ethnic" csv:"p_ethnic"`
	PartyPersonality   int       `json:"p_pers" csv:"p_pers"`
	Government         string    `json:"p_govt" csv:"p_govt"`
	Rank               RankLevel `json:"pre_switch_rank" csv:"pre_switch_rank"`
	RankChange         string    `json:"rank_change" csv:"rank_change"`
	Switch             int       `json:"p_switch1" csv:"p_switch1"`
	Destination        string    `json:"p_dest" csv:"p_dest"`
	SwitchCost         string    `json:"idlgcl_switch_cost" csv:"idlgcl_switch_cost"`
	ElectionYear       int       `json:"elect_year" csv:"elect_year"`
	LeaderChange       int       `json:"lead_change" csv:"lead_change"`
	LeaderChangeFormal int       `json:"lead_change_formal" csv:"lead_change_formal"`
	LeaveEarly         int       `json:"leave_early" csv:"leave_early"`
	LeaderConvOneYear  int       `json:"lead_conv_one_year" csv:"lead_conv_one_year"`
	LeaderConvMulti    int       `json:"lead_conv_multi_year" csv:"lead_conv_multi_year"`
	MinConvFull        int       `json:"min_conv_full" csv:"min_conv_full"`
	MinConvOld         int       `json:"min_conv_old" csv:"min_conv_old"`
	MinConvNew         int       `json:"min_conv_new" csv:"min_conv_new"`
	MinConvNone        int       `json:"min_conv_none" csv:"min_conv_none"`
	MediaYear          int       `json:"media_year" csv:"media_year"`
	MediaToElection    int       `json:"media_to_election" csv:"media_to_election"`
	MediaToExit        int       `json:"media_to_exit" csv:"media_to_exit"`
	LocalOverlap       string    `json:"local_overlap" csv:"local_overlap"`
}

// FullName is the identity string "SURNAME Given".
func (p PersonYear) FullName() string {
	return p.Surname + " " + p.Given
}
