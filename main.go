package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"paperbase/config"
	"paperbase/models"
	"paperbase/providers"
	"paperbase/providers/arxiv"
	"paperbase/providers/generic"
	"paperbase/providers/pubmed"
	"paperbase/services"
	"paperbase/storage"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// currentUserID liest den X-User-ID-Header und prüft, ob der User existiert.
// Gibt 0 zurück, wenn kein Header gesetzt ist.
func currentUserID(c *gin.Context, db *gorm.DB) (uint, bool) {
	header := c.GetHeader("X-User-ID")
	if header == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(header, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid X-User-ID header"})
		return 0, false
	}
	var user models.User
	if err := db.First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return 0, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return 0, false
	}
	return user.ID, true
}

// requireUserID wie currentUserID, aber der Header muss gesetzt sein.
func requireUserID(c *gin.Context, db *gorm.DB) (uint, bool) {
	userID, ok := currentUserID(c, db)
	if !ok {
		return 0, false
	}
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header required"})
		return 0, false
	}
	return userID, true
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(
		&models.User{}, &models.Paper{}, &models.UserPaper{},
		&models.Citation{}, &models.KnowledgeEntry{}, &models.ProcessingTask{},
	); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup Services
	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	resolvers := []providers.Resolver{
		arxiv.NewFetcher(cfg, logging),
		pubmed.NewFetcher(cfg, logging),
		generic.NewFetcher(logging), // Fallback, greift immer
	}

	store := services.NewStore(db)
	aiClient := services.NewAIClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel,
		cfg.MaxPaperLength, cfg.AITimeoutSeconds, logging)
	pdfExtractor := services.NewPDFExtractor(cfg.MaxPaperLength, logging)
	pool := services.NewWorkerPool(cfg.WorkerCount, cfg.WorkerQueueSize,
		services.DefaultRetryPolicy(cfg.TaskMaxRetries), store, logging)

	paperService := services.NewPaperService(cfg, db, s3Client, logging,
		resolvers, aiClient, pdfExtractor, pool)
	citationService := services.NewCitationService(store, store, logging)
	knowledgeService := services.NewKnowledgeService(db, aiClient, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Setup Routes
	setupUserRoutes(router, db, logging)
	setupPaperRoutes(router, db, cfg, paperService, logging)
	setupCitationRoutes(router, db, store, citationService, logging)
	setupKnowledgeRoutes(router, db, knowledgeService, logging)
	setupTaskRoutes(router, paperService, logging)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.MetricsCronSchedule, func() {
		logging.Info("Running scheduled metric refresh...")
		count, err := paperService.RefreshMetrics(context.Background())
		if err != nil {
			logging.Error("Metric refresh job failed", zap.Error(err))
		} else {
			logging.Info("Metric refresh job completed", zap.Int("updated_papers", count))
		}
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown failed", zap.Error(err))
	}
	cronScheduler.Stop()
	pool.Stop()
	logging.Info("Shutdown complete.")
}

func setupUserRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/users")

	rg.POST("/", func(c *gin.Context) {
		var user models.User
		if err := c.ShouldBindJSON(&user); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if user.Email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email required"})
			return
		}
		if err := db.Create(&user).Error; err != nil {
			log.Error("DB error creating user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
			return
		}
		c.JSON(http.StatusCreated, user)
	})

	rg.GET("/:id", func(c *gin.Context) {
		var user models.User
		if err := db.First(&user, c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			log.Error("DB error fetching user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, user)
	})
}

func setupPaperRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, papers *services.PaperService, log *zap.Logger) {
	rg := router.Group("/papers")

	// Paper aus URL anlegen
	rg.POST("/", func(c *gin.Context) {
		userID, ok := requireUserID(c, db)
		if !ok {
			return
		}
		var req struct {
			URL string `json:"url" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "url required"})
			return
		}

		paper, created, err := papers.AddFromURL(c.Request.Context(), userID, req.URL)
		if err != nil {
			log.Error("Adding paper from URL failed", zap.String("url", req.URL), zap.Error(err))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"paper": paper, "created": created})
	})

	// PDF-Upload (multipart)
	rg.POST("/upload", func(c *gin.Context) {
		userID, ok := requireUserID(c, db)
		if !ok {
			return
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		if fileHeader.Size > cfg.UploadMaxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
			return
		}

		paper, err := papers.ProcessUpload(c.Request.Context(), userID, fileHeader.Filename, data)
		if err != nil {
			log.Error("PDF upload failed", zap.String("filename", fileHeader.Filename), zap.Error(err))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, paper)
	})

	// Bibliothek des Users
	rg.GET("/", func(c *gin.Context) {
		userID, ok := requireUserID(c, db)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		status := models.ReadingStatus(c.Query("status"))

		list, err := papers.ListUserPapers(c.Request.Context(), userID, status, limit, offset)
		if err != nil {
			log.Error("Listing user papers failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	// Suche, body-gesteuert
	rg.POST("/query", func(c *gin.Context) {
		userID, ok := currentUserID(c, db)
		if !ok {
			return
		}
		var req services.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		result, err := papers.Search(c.Request.Context(), userID, req)
		if err != nil {
			log.Error("Paper search failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	rg.GET("/recommendations", func(c *gin.Context) {
		userID, ok := requireUserID(c, db)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		recs, err := papers.Recommendations(c.Request.Context(), userID, limit)
		if err != nil {
			log.Error("Recommendations failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, recs)
	})

	rg.GET("/stats", func(c *gin.Context) {
		userID, ok := currentUserID(c, db)
		if !ok {
			return
		}
		global, err := papers.GlobalStats(c.Request.Context())
		if err != nil {
			log.Error("Global stats failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		resp := gin.H{"global": global}
		if userID != 0 {
			userStats, err := papers.UserStats(c.Request.Context(), userID)
			if err != nil {
				log.Error("User stats failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
				return
			}
			resp["user"] = userStats
		}
		c.JSON(http.StatusOK, resp)
	})

	// Detail-Ansicht inklusive Lesestatus
	rg.GET("/:id", func(c *gin.Context) {
		userID, ok := currentUserID(c, db)
		if !ok {
			return
		}
		paperID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paper id"})
			return
		}
		detail, err := papers.GetDetail(c.Request.Context(), userID, uint(paperID))
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
				return
			}
			log.Error("Paper detail failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, detail)
	})

	rg.PATCH("/:id/reading", func(c *gin.Context) {
		userID, ok := requireUserID(c, db)
		if !ok {
			return
		}
		paperID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paper id"})
			return
		}
		var upd services.ReadingStateUpdate
		if err := c.ShouldBindJSON(&upd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		userPaper, err := papers.UpdateReadingState(c.Request.Context(), userID, uint(paperID), upd)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "paper not in library"})
				return
			}
			log.Error("Reading state update failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, userPaper)
	})
}

func setupCitationRoutes(router *gin.Engine, db *gorm.DB, store *services.Store, citations *services.CitationService, log *zap.Logger) {
	rg := router.Group("/citations")

	paperIDParam := func(c *gin.Context) (uint, bool) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paper id"})
			return 0, false
		}
		return uint(id), true
	}

	rg.GET("/:id/network", func(c *gin.Context) {
		paperID, ok := paperIDParam(c)
		if !ok {
			return
		}

		depth, err := strconv.Atoi(c.DefaultQuery("depth", "2"))
		if err != nil || depth < 0 || depth > 5 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "depth must be between 0 and 5"})
			return
		}
		maxPapers, err := strconv.Atoi(c.DefaultQuery("max_papers", "50"))
		if err != nil || maxPapers < 1 || maxPapers > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_papers must be between 1 and 200"})
			return
		}

		network, err := citations.BuildNetwork(c.Request.Context(), paperID, depth, maxPapers)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
				return
			}
			log.Error("Network build failed", zap.Uint("paper_id", paperID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "network build failed"})
			return
		}
		c.JSON(http.StatusOK, network)
	})

	rg.GET("/:id/citing", func(c *gin.Context) {
		paperID, ok := paperIDParam(c)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		list, err := citations.CitingPapers(c.Request.Context(), paperID, limit)
		if err != nil {
			log.Error("Citing papers failed", zap.Uint("paper_id", paperID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	rg.GET("/:id/references", func(c *gin.Context) {
		paperID, ok := paperIDParam(c)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		list, err := citations.ReferencedPapers(c.Request.Context(), paperID, limit)
		if err != nil {
			log.Error("Referenced papers failed", zap.Uint("paper_id", paperID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	rg.GET("/:id/influence", func(c *gin.Context) {
		paperID, ok := paperIDParam(c)
		if !ok {
			return
		}
		metrics, err := citations.CalculateInfluence(c.Request.Context(), paperID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
				return
			}
			log.Error("Influence calculation failed", zap.Uint("paper_id", paperID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "influence calculation failed"})
			return
		}
		c.JSON(http.StatusOK, metrics)
	})

	// Batch-Upsert von Zitationskanten
	rg.POST("/upsert", func(c *gin.Context) {
		type edgeInput struct {
			CitingPaperID uint    `json:"citing_paper_id" binding:"required"`
			CitedPaperID  uint    `json:"cited_paper_id" binding:"required"`
			Context       string  `json:"context"`
			Section       string  `json:"section"`
			Sentiment     string  `json:"sentiment"`
			Strength      float64 `json:"strength"`
		}
		var req struct {
			Citations []edgeInput `json:"citations" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		edges := make([]models.Citation, 0, len(req.Citations))
		for _, e := range req.Citations {
			strength := e.Strength
			if strength == 0 {
				strength = 1.0
			}
			edges = append(edges, models.Citation{
				CitingPaperID: e.CitingPaperID,
				CitedPaperID:  e.CitedPaperID,
				Context:       e.Context,
				Section:       e.Section,
				Sentiment:     e.Sentiment,
				Strength:      strength,
			})
		}

		if err := store.UpsertCitations(c.Request.Context(), edges); err != nil {
			log.Error("Citation upsert failed", zap.Int("edges", len(edges)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upsert failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"upserted": len(edges)})
	})
}

func setupKnowledgeRoutes(router *gin.Engine, db *gorm.DB, knowledge *services.KnowledgeService, log *zap.Logger) {
	rg := router.Group("/knowledge")

	entryIDParam := func(c *gin.Context) (uint, bool) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
			return 0, false
		}
		return uint(id), true
	}

	rg.POST("/", func(c *gin.Context) {
		userID, ok := requireUserID(c, db)
		if !ok {
			return
		}
		var input services.KnowledgeEntryInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		entry, err := knowledge.CreateEntry(c.Request.Context(), userID, input)
		if err != nil {
			log.Error("Knowledge entry creation failed", zap.Error(err))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, entry)
	})

	rg.GET("/", func(c *gin.Context) {
		userID, ok := requireUserID(c, db)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		entryType := models.EntryType(c.Query("entry_type"))

		var paperID *uint
		if raw := c.Query("paper_id"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paper_id"})
				return
			}
			pid := uint(id)
			paperID = &pid
		}

		entries, err := knowledge.ListEntries(c.Request.Context(), userID, entryType, paperID, limit, offset)
		if err != nil {
			log.Error("Knowledge listing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, entries)
	})

	rg.POST("/query", func(c *gin.Context) {
		userID, ok := requireUserID(c, db)
		if !ok {
			return
		}
		var req services.KnowledgeSearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		result, err := knowledge.SearchEntries(c.Request.Context(), userID, req)
		if err != nil {
			log.Error("Knowledge search failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	rg.GET("/stats", func(c *gin.Context) {
		userID, ok := requireUserID(c, db)
		if !ok {
			return
		}
		stats, err := knowledge.Stats(c.Request.Context(), userID)
		if err != nil {
			log.Error("Knowledge stats failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	rg.GET("/:id", func(c *gin.Context) {
		userID, ok := requireUserID(c, db)
		if !ok {
			return
		}
		entryID, ok := entryIDParam(c)
		if !ok {
			return
		}
		entry, err := knowledge.GetEntry(c.Request.Context(), userID, entryID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
				return
			}
			log.Error("Knowledge entry fetch failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, entry)
	})

	rg.PUT("/:id", func(c *gin.Context) {
		userID, ok := requireUserID(c, db)
		if !ok {
			return
		}
		entryID, ok := entryIDParam(c)
		if !ok {
			return
		}
		var upd services.KnowledgeEntryUpdate
		if err := c.ShouldBindJSON(&upd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		entry, err := knowledge.UpdateEntry(c.Request.Context(), userID, entryID, upd)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
				return
			}
			log.Error("Knowledge entry update failed", zap.Error(err))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, entry)
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		userID, ok := requireUserID(c, db)
		if !ok {
			return
		}
		entryID, ok := entryIDParam(c)
		if !ok {
			return
		}
		if err := knowledge.DeleteEntry(c.Request.Context(), userID, entryID); err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
				return
			}
			log.Error("Knowledge entry deletion failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})
}

func setupTaskRoutes(router *gin.Engine, papers *services.PaperService, log *zap.Logger) {
	rg := router.Group("/tasks")

	rg.GET("/:task_id", func(c *gin.Context) {
		task, err := papers.TaskStatus(c.Request.Context(), c.Param("task_id"))
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
				return
			}
			log.Error("Task status fetch failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, task)
	})
}
