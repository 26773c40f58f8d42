package web

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/maaaruch/memory-tribunal/internal/chart"
	"github.com/maaaruch/memory-tribunal/internal/domain"
	"github.com/maaaruch/memory-tribunal/internal/hub"
)

//go:embed static
var embeddedStatic embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Voter interface {
	CastVote(ctx context.Context, option string) (domain.Tally, bool)
	Tally() domain.Tally
}

type FrameSource interface {
	Frame() chart.Frame
}

type ClientManager interface {
	Register(client hub.Client, hello func() []byte)
	Unregister(client hub.Client)
}

type voteRequest struct {
	Option string `json:"option"`
}

type voteResponse struct {
	Accepted bool         `json:"accepted"`
	Tally    domain.Tally `json:"tally"`
}

type resultsResponse struct {
	Tally domain.Tally `json:"tally"`
	Chart chart.Frame  `json:"chart"`
}

type Server struct {
	votes   Voter
	chart   FrameSource
	clients ClientManager
}

func NewServer(votes Voter, chart FrameSource, clients ClientManager) *Server {
	return &Server{
		votes:   votes,
		chart:   chart,
		clients: clients,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	static, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		// the embed directive guarantees the directory exists
		panic(err)
	}

	r.GET("/", func(c *gin.Context) {
		c.FileFromFS("/", http.FS(static))
	})
	r.StaticFS("/static", http.FS(static))
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")
	api.POST("/vote", s.HandleVote)
	api.GET("/results", s.HandleResults)

	r.GET("/ws", s.HandleWebSocket)
	return r
}

func (s *Server) HandleVote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// unknown options are ignored, not rejected
	tally, ok := s.votes.CastVote(c.Request.Context(), req.Option)
	c.JSON(http.StatusOK, voteResponse{Accepted: ok, Tally: tally})
}

func (s *Server) HandleResults(c *gin.Context) {
	c.JSON(http.StatusOK, resultsResponse{
		Tally: s.votes.Tally(),
		Chart: s.chart.Frame(),
	})
}

func (s *Server) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("websocket upgrade:", err)
		return
	}

	client := hub.NewWebsocketClient(conn)
	s.clients.Register(client, s.hello)
	defer s.clients.Unregister(client)

	// pages only listen; reading detects the close
	for {
		if _, _, err := client.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) hello() []byte {
	b, err := hub.ChartMessage(s.chart.Frame())
	if err != nil {
		log.Println("websocket hello:", err)
		return nil
	}
	return b
}
