package indexer

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Service struct {
	engine     *gin.Engine
	indexer    *ChainIndexer
	listenAddr string
}

func NewService(listenAddr string, indexer *ChainIndexer) *Service {
	r := gin.Default()
	s := &Service{
		engine:     r,
		indexer:    indexer,
		listenAddr: listenAddr,
	}
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getVotes", s.handleGetVotes)
	s.engine.POST("/getDeposits", s.handleGetDeposits)
	s.engine.POST("/getAssignments", s.handleGetAssignments)
	s.engine.POST("/getRetirements", s.handleGetRetirements)
	return s
}

func (s *Service) Start() {
	s.engine.Run(s.listenAddr)
}

type VoteInfo struct {
	Support      bool   `json:"support"`
	VoterAddress string `json:"voter_address"`
	Height       uint64 `json:"height"`
}

type ProposalInfo struct {
	Proposal Proposal   `json:"proposal"`
	Votes    []VoteInfo `json:"votes"`
}

type GetProposalsReq struct {
	ProposalId      uint64 `json:"proposalId"`
	ProposerAddress string `json:"proposer"`
	Page            int    `json:"page"`
	PageSize        int    `json:"pageSize"`
}

type GetProposalResponse struct {
	Proposals []ProposalInfo `json:"proposals"`
	Total     uint64         `json:"total"`
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var response GetProposalResponse
	response.Proposals = make([]ProposalInfo, 0)
	var err error
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if requestData.ProposalId != 0 {
		proposalInfo, err := s.getProposalInfoById(requestData.ProposalId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, proposalInfo)
		c.JSON(http.StatusOK, response)
		return
	}
	proposalTotal := uint64(0)
	proposals := make([]Proposal, 0)
	if requestData.ProposerAddress != "" {
		proposals, proposalTotal, err = s.indexer.getProposalsByProposerAddr(requestData.ProposerAddress, requestData.Page, requestData.PageSize)
	} else {
		proposals, proposalTotal, err = s.indexer.getProposals(requestData.Page, requestData.PageSize)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response.Total = proposalTotal
	for _, proposal := range proposals {
		proposalInfo, err := s.getProposalInfoById(proposal.Id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, proposalInfo)
	}
	c.JSON(http.StatusOK, response)
}

func (s *Service) getProposalInfoById(proposalId uint64) (ProposalInfo, error) {
	proposal, err := s.indexer.getProposalById(proposalId)
	if err != nil {
		return ProposalInfo{}, err
	}
	votes, _, err := s.indexer.getVotesByProposal(proposalId, 0, 1000)
	if err != nil {
		return ProposalInfo{}, err
	}
	proposalInfo := ProposalInfo{
		Proposal: proposal,
		Votes:    votesToVoteInfo(votes),
	}
	return proposalInfo, nil
}

func votesToVoteInfo(votes []Vote) []VoteInfo {
	infos := make([]VoteInfo, 0, len(votes))
	for _, vote := range votes {
		infos = append(infos, VoteInfo{
			Support:      vote.Support,
			VoterAddress: vote.VoterAddress,
			Height:       vote.Height,
		})
	}
	return infos
}

type GetVotesReq struct {
	ProposalId   uint64 `json:"proposalId"`
	VoterAddress string `json:"voter"`
	Page         int    `json:"page"`
	PageSize     int    `json:"pageSize"`
}

type GetVotesResponse struct {
	Votes []Vote `json:"votes"`
	Total uint64 `json:"total"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var response GetVotesResponse
	response.Votes = make([]Vote, 0)
	var requestData GetVotesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if requestData.ProposalId != 0 {
		votes, total, err := s.indexer.getVotesByProposal(requestData.ProposalId, requestData.Page, requestData.PageSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Votes = votes
		response.Total = total
		c.JSON(http.StatusOK, response)
		return
	}
	if requestData.VoterAddress != "" {
		votes, total, err := s.indexer.getVotesByVoter(requestData.VoterAddress, requestData.Page, requestData.PageSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Votes = votes
		response.Total = total
		c.JSON(http.StatusOK, response)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "proposalId or voter is required"})
}

type GetDepositsReq struct {
	MemberAddress string `json:"member"`
	Page          int    `json:"page"`
	PageSize      int    `json:"pageSize"`
}

type GetDepositsResponse struct {
	Deposits []Deposit `json:"deposits"`
	Total    uint64    `json:"total"`
}

func (s *Service) handleGetDeposits(c *gin.Context) {
	var response GetDepositsResponse
	response.Deposits = make([]Deposit, 0)
	var requestData GetDepositsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	deposits, total, err := s.indexer.getDeposits(requestData.MemberAddress, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Deposits = deposits
	response.Total = total
	c.JSON(http.StatusOK, response)
}

type GetAssignmentsReq struct {
	OwnerAddress string `json:"owner"`
	Page         int    `json:"page"`
	PageSize     int    `json:"pageSize"`
}

type GetAssignmentsResponse struct {
	Assignments []Assignment `json:"assignments"`
	Total       uint64       `json:"total"`
}

func (s *Service) handleGetAssignments(c *gin.Context) {
	var response GetAssignmentsResponse
	response.Assignments = make([]Assignment, 0)
	var requestData GetAssignmentsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	assignments, total, err := s.indexer.getAssignments(requestData.OwnerAddress, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Assignments = assignments
	response.Total = total
	c.JSON(http.StatusOK, response)
}

type GetRetirementsReq struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type GetRetirementsResponse struct {
	Retirements []Retirement `json:"retirements"`
	Total       uint64       `json:"total"`
}

func (s *Service) handleGetRetirements(c *gin.Context) {
	var response GetRetirementsResponse
	response.Retirements = make([]Retirement, 0)
	var requestData GetRetirementsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	retirements, total, err := s.indexer.getRetirements(requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Retirements = retirements
	response.Total = total
	c.JSON(http.StatusOK, response)
}
