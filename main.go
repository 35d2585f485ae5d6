package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/serapieum/docent/internal/chat"
	"github.com/serapieum/docent/internal/config"
	"github.com/serapieum/docent/internal/figures"
	"github.com/serapieum/docent/internal/index"
	"github.com/serapieum/docent/internal/ingest"
	"github.com/serapieum/docent/internal/llm"
	"github.com/serapieum/docent/internal/mcpserver"
	"github.com/serapieum/docent/internal/store"
	"github.com/serapieum/docent/internal/util"

	"github.com/spf13/cobra"
)

var (
	// Flags
	dbPath     string
	configPath string

	ollamaURL string
	modelName string
	embedDim  int

	localMode      bool
	localModelPath string
	localLibPath   string

	contextLines int
	findAll      bool
	recursive    bool
	doDescribe   bool
	debugLog     string

	// Each command binds its own collection flag; the defaults differ.
	extractCollection string
	importCollection  string
	exportCollection  string
	figuresCollection string

	// Global instances
	globalStore  *store.Store
	globalConfig *config.Config
)

func defaultDBPath() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "./docent.sqlite"
	}
	return filepath.Join(cacheDir, "docent", "index.sqlite")
}

func getEmbedder() (llm.Embedder, error) {
	if globalConfig.UseLocal {
		if globalConfig.LocalModelPath == "" {
			return nil, fmt.Errorf("local mode enabled but local_model_path is missing")
		}
		if globalConfig.LocalLibPath == "" && os.Getenv("YZMA_LIB") != "" {
			globalConfig.LocalLibPath = os.Getenv("YZMA_LIB")
		}
		if globalConfig.LocalLibPath == "" {
			return nil, fmt.Errorf("local mode enabled but local_lib_path is missing")
		}
		fmt.Printf("Loading local model: %s\n", globalConfig.LocalModelPath)
		return llm.NewLocalClient(globalConfig.LocalModelPath, globalConfig.LocalLibPath, globalConfig.EmbedDimensions)
	}
	return llm.NewHTTPClient(globalConfig.OllamaURL, globalConfig.EmbedModel, globalConfig.EmbedDimensions), nil
}

func saveConfig() {
	var err error
	if configPath != "" {
		err = config.SaveFile(globalConfig, configPath)
	} else {
		err = config.Save(globalConfig)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func generateEmbeddings() {
	embedder, err := getEmbedder()
	if err != nil {
		log.Fatal(err)
	}
	defer embedder.Close()

	pending, err := globalStore.GetPendingEmbeddings()
	if err != nil {
		log.Fatal(err)
	}
	if len(pending) == 0 {
		fmt.Println("No pending embeddings.")
		return
	}

	fmt.Printf("Generating embeddings for %d documents (Dim: %d)...\n", len(pending), globalConfig.EmbedDimensions)

	for hash, content := range pending {
		if err := embedDocumentChunks(globalStore, embedder, hash, content,
			globalConfig.ChunkSize, globalConfig.ChunkOverlap); err != nil {
			log.Printf("Error embedding: %v", err)
			continue
		}
		fmt.Print(".")
	}
	fmt.Println("\nDone.")
}

// embedDocumentChunks embeds every chunk of one document. Vectors are only
// saved once all chunks succeeded: a partial save would take the document out
// of the pending set with chunks missing.
func embedDocumentChunks(s *store.Store, embedder llm.Embedder, hash, content string, chunkSize, chunkOverlap int) error {
	chunks, err := ingest.SplitMarkdown(content, chunkSize, chunkOverlap)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}

	vecs := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vec, err := embedder.Embed(chunk, false)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		vecs[i] = vec
	}

	for i, vec := range vecs {
		if err := s.SaveEmbedding(hash, i, vec); err != nil {
			return err
		}
	}
	return nil
}

func reindex(colName, rootPath string) {
	fmt.Printf("Indexing %s...\n", colName)
	docs, err := ingest.ReadDocuments(rootPath, true)
	if err != nil {
		log.Printf("Error reading %s: %v", rootPath, err)
		return
	}
	for _, doc := range docs {
		doc.Collection = colName
		if _, err := globalStore.AddDocument(doc, true); err != nil {
			log.Printf("Error indexing %s: %v", doc.Path, err)
		}
	}
}

func printResults(results []store.SearchResult) {
	for _, r := range results {
		fmt.Printf("\033[1;36m[%s] %s\033[0m\n", r.Filepath, r.Title)
		if len(r.Matches) > 0 {
			for _, match := range r.Matches {
				fmt.Printf("%s\n\n", match)
			}
		} else {
			fmt.Printf("   %s\n\n", strings.ReplaceAll(r.Snippet, "\n", " "))
		}
	}
}

func newRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "docent",
		Short: "Document indexing and retrieval with local LLMs",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error

			if configPath != "" {
				globalConfig, err = config.LoadFile(configPath)
			} else {
				globalConfig, err = config.Load()
			}
			if err != nil {
				log.Fatalf("Failed to load config: %v", err)
			}

			if dbPath == "" {
				dbPath = defaultDBPath()
			}
			globalStore, err = store.NewStore(dbPath)
			if err != nil {
				log.Fatalf("Failed to open store at %s: %v", dbPath, err)
			}

			if globalConfig.EmbeddingsConfigured {
				if err := globalStore.EnsureVectorTable(globalConfig.EmbedDimensions); err != nil {
					log.Fatalf("Failed to ensure vector table: %v", err)
				}
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if globalStore != nil {
				globalStore.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (default: user cache dir)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/docent.yml)")

	var cmdInfo = &cobra.Command{
		Use:   "info",
		Short: "Show index information and configuration",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("=== Configuration ===")
			fmt.Printf("Database Path:    %s\n", globalStore.DBPath)

			if globalConfig.EmbeddingsConfigured {
				fmt.Printf("Embed Model:      %s\n", globalConfig.EmbedModel)
				fmt.Printf("Dimensions:       %d\n", globalConfig.EmbedDimensions)
				fmt.Printf("Chunk Size:       %d\n", globalConfig.ChunkSize)
				fmt.Printf("Chunk Overlap:    %d\n", globalConfig.ChunkOverlap)

				if globalConfig.UseLocal {
					fmt.Println("Mode:             Local (llama.cpp)")
					fmt.Printf("Local Model:      %s\n", globalConfig.LocalModelPath)
					fmt.Printf("Local Lib:        %s\n", globalConfig.LocalLibPath)
				} else {
					fmt.Println("Mode:             Ollama Server")
					fmt.Printf("Ollama URL:       %s\n", globalConfig.OllamaURL)
				}
			} else {
				fmt.Println("Embedding:        Not configured (run 'docent embed' to setup)")
			}
			fmt.Printf("Chat Model:       %s\n", globalConfig.ChatModel)
			fmt.Printf("Vision Model:     %s\n", globalConfig.VisionModel)
			fmt.Println()

			fmt.Println("=== Collections ===")
			if len(globalConfig.Collections) == 0 {
				fmt.Println("  (No collections added)")
			} else {
				for _, col := range globalConfig.Collections {
					fmt.Printf("- %s\n  Path: %s\n", col.Name, col.Path)
				}
			}
			fmt.Println()

			stats, err := globalStore.GetStats()
			if err != nil {
				log.Printf("Error fetching stats: %v", err)
				return
			}

			fmt.Println("=== Index Stats ===")
			fmt.Printf("Total Documents:  %d\n", stats.TotalDocuments)
			fmt.Printf("Vector Count:     %d\n", stats.Embeddings)
			fmt.Printf("Named Indexes:    %d\n", stats.Indexes)
		},
	}

	var cmdAdd = &cobra.Command{
		Use:   "add [path...]",
		Short: "Add one or more folders as collections",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var added []config.Collection

			for _, arg := range args {
				absPath, err := filepath.Abs(arg)
				if err != nil {
					log.Printf("Error resolving path %s: %v", arg, err)
					continue
				}
				name := filepath.Base(absPath)

				exists := false
				for _, c := range globalConfig.Collections {
					if c.Path == absPath {
						exists = true
						break
					}
				}

				if !exists {
					newCol := config.Collection{
						Name:    name,
						Path:    absPath,
						Pattern: "**/*.md",
					}
					globalConfig.Collections = append(globalConfig.Collections, newCol)
					added = append(added, newCol)
					fmt.Printf("Added collection '%s' at %s\n", name, absPath)
				} else {
					fmt.Printf("Collection already exists: %s\n", absPath)
				}
			}

			if len(added) > 0 {
				saveConfig()
				for _, col := range added {
					reindex(col.Name, col.Path)
				}
			}
		},
	}

	var cmdUpdate = &cobra.Command{
		Use:   "update",
		Short: "Update index",
		Run: func(cmd *cobra.Command, args []string) {
			for _, col := range globalConfig.Collections {
				reindex(col.Name, col.Path)
			}

			if globalConfig.EmbeddingsConfigured {
				generateEmbeddings()
			}
		},
	}

	var cmdRead = &cobra.Command{
		Use:   "read [dir]",
		Short: "Read documents from a directory and list them with their IDs",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			docs, err := ingest.ReadDocuments(args[0], recursive)
			if err != nil {
				log.Fatal(err)
			}
			for _, doc := range docs {
				fmt.Printf("%s  %s (%s bytes)\n", doc.Hash[:12], doc.Path, doc.Meta["file_size"])
			}
			fmt.Printf("%d documents.\n", len(docs))
		},
	}
	cmdRead.Flags().BoolVarP(&recursive, "recursive", "r", false, "Read from subdirectories")

	var cmdEmbed = &cobra.Command{
		Use:   "embed",
		Short: "Generate missing embeddings (and configure model settings)",
		Run: func(cmd *cobra.Command, args []string) {
			if cmd.Flags().Changed("url") {
				globalConfig.OllamaURL = ollamaURL
			}
			if cmd.Flags().Changed("model") {
				globalConfig.EmbedModel = modelName
			}
			if cmd.Flags().Changed("dim") {
				globalConfig.EmbedDimensions = embedDim
			}
			if cmd.Flags().Changed("local") {
				globalConfig.UseLocal = localMode
			}
			if cmd.Flags().Changed("model-path") {
				globalConfig.LocalModelPath = localModelPath
			}
			if cmd.Flags().Changed("lib-path") {
				globalConfig.LocalLibPath = localLibPath
			}

			// Local mode without an explicit model name: use the GGUF
			// file name.
			if globalConfig.UseLocal && globalConfig.LocalModelPath != "" && !cmd.Flags().Changed("model") {
				globalConfig.EmbedModel = filepath.Base(globalConfig.LocalModelPath)
			}

			globalConfig.EmbeddingsConfigured = true
			saveConfig()

			if err := globalStore.EnsureVectorTable(globalConfig.EmbedDimensions); err != nil {
				log.Fatal(err)
			}

			generateEmbeddings()
		},
	}
	cmdEmbed.Flags().StringVar(&ollamaURL, "url", "", "Ollama API URL")
	cmdEmbed.Flags().StringVar(&modelName, "model", "", "Embedding model name")
	cmdEmbed.Flags().IntVar(&embedDim, "dim", 0, "Embedding vector dimensions")
	cmdEmbed.Flags().BoolVar(&localMode, "local", false, "Use local llama.cpp inference")
	cmdEmbed.Flags().StringVar(&localModelPath, "model-path", "", "Path to GGUF model file")
	cmdEmbed.Flags().StringVar(&localLibPath, "lib-path", "", "Path to llama.cpp shared library")

	var cmdSearch = &cobra.Command{
		Use:   "search [query]",
		Short: "Full text search",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			results, err := globalStore.SearchFTS(args[0], 10, contextLines, findAll)
			if err != nil {
				log.Fatal(err)
			}
			printResults(results)
		},
	}
	cmdSearch.Flags().IntVarP(&contextLines, "context", "C", 0, "Context lines")
	cmdSearch.Flags().BoolVarP(&findAll, "all", "a", false, "Show all matches")

	var cmdVSearch = &cobra.Command{
		Use:   "vsearch [query]",
		Short: "Vector semantic search",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if !globalConfig.EmbeddingsConfigured {
				log.Fatal("Embeddings not configured. Run 'docent embed' first.")
			}
			embedder, err := getEmbedder()
			if err != nil {
				log.Fatal(err)
			}
			defer embedder.Close()

			qVec, err := embedder.Embed(args[0], true)
			if err != nil {
				log.Fatal(err)
			}

			results, err := globalStore.SearchVec(qVec, 10)
			if err != nil {
				log.Fatal(err)
			}

			for _, r := range results {
				fmt.Printf("[%.4f] %s - %s\n", r.Score, r.Filepath, r.Title)
			}
		},
	}

	var cmdQuery = &cobra.Command{
		Use:   "query [query]",
		Short: "Hybrid search (BM25 + Vector + RRF)",
		Long:  "Performs a hybrid search combining Full-Text Search and Vector Search, ranking results using Reciprocal Rank Fusion.",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if !globalConfig.EmbeddingsConfigured {
				log.Fatal("Embeddings not configured. Run 'docent embed' first.")
			}

			embedder, err := getEmbedder()
			if err != nil {
				log.Fatal(err)
			}
			defer embedder.Close()

			query := args[0]
			qVec, err := embedder.Embed(query, true)
			if err != nil {
				log.Fatal(err)
			}

			results, err := globalStore.SearchHybrid(query, qVec, 10)
			if err != nil {
				log.Fatal(err)
			}

			if len(results) == 0 {
				fmt.Println("No results found.")
				return
			}

			fmt.Println("\nHybrid Search Results (RRF):")
			for i, r := range results {
				fmt.Printf("\n%d. \033[1;36m%s\033[0m (Score: %.4f)\n", i+1, r.Filepath, r.Score)
				fmt.Printf("   Title: %s\n", r.Title)

				if len(r.Matches) > 0 {
					for _, match := range r.Matches {
						fmt.Printf("   %s\n", match)
					}
				} else {
					snippet := strings.ReplaceAll(r.Snippet, "\n", " ")
					fmt.Printf("   %s\n", util.Ellipsis(snippet, 150))
				}
			}
		},
	}

	// --- Named index commands ---
	newManager := func(embedder llm.Embedder) *index.Manager {
		return &index.Manager{
			Store:        globalStore,
			Embedder:     embedder,
			Model:        globalConfig.EmbedModel,
			Dim:          globalConfig.EmbedDimensions,
			ChunkSize:    globalConfig.ChunkSize,
			ChunkOverlap: globalConfig.ChunkOverlap,
		}
	}

	var cmdIndex = &cobra.Command{
		Use:   "index",
		Short: "Manage named vector indexes",
	}

	var cmdIndexCreate = &cobra.Command{
		Use:   "create [name] [dir]",
		Short: "Create a vector index from a directory of documents",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if !globalConfig.EmbeddingsConfigured {
				log.Fatal("Embeddings not configured. Run 'docent embed' first.")
			}
			embedder, err := getEmbedder()
			if err != nil {
				log.Fatal(err)
			}
			defer embedder.Close()

			docs, err := ingest.ReadDocuments(args[1], true)
			if err != nil {
				log.Fatal(err)
			}
			for i := range docs {
				docs[i].Collection = args[0]
			}

			if err := globalStore.EnsureVectorTable(globalConfig.EmbedDimensions); err != nil {
				log.Fatal(err)
			}

			idx, err := newManager(embedder).Build(args[0], docs)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(idx)
		},
	}

	var cmdIndexList = &cobra.Command{
		Use:   "list",
		Short: "List vector indexes",
		Run: func(cmd *cobra.Command, args []string) {
			infos, err := globalStore.ListIndexes()
			if err != nil {
				log.Fatal(err)
			}
			if len(infos) == 0 {
				fmt.Println("No indexes.")
				return
			}
			for _, info := range infos {
				fmt.Printf("%-20s model=%s dim=%d documents=%d created=%s\n",
					info.Name, info.Model, info.Dim, info.Docs, info.CreatedAt)
			}
		},
	}

	var cmdIndexDelete = &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a vector index (documents are kept)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := globalStore.DeleteIndex(args[0]); err != nil {
				log.Fatal(err)
			}
			fmt.Printf("Deleted index %s\n", args[0])
		},
	}

	cmdIndex.AddCommand(cmdIndexCreate, cmdIndexList, cmdIndexDelete)

	var cmdExtract = &cobra.Command{
		Use:   "extract [dir]",
		Short: "Chunk documents and extract metadata with the chat model",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			docs, err := ingest.ReadDocuments(args[0], recursive)
			if err != nil {
				log.Fatal(err)
			}

			pipeline := &ingest.Pipeline{
				Generator:    llm.NewGenerator(globalConfig.OllamaURL, globalConfig.ChatModel),
				Extractors:   globalConfig.Extractors,
				ChunkSize:    globalConfig.ChunkSize,
				ChunkOverlap: globalConfig.ChunkOverlap,
			}

			ctx := context.Background()
			for _, doc := range docs {
				chunks, err := pipeline.Run(ctx, []store.Document{doc})
				if err != nil {
					log.Fatal(err)
				}
				n, err := ingest.StoreChunks(globalStore, extractCollection, doc.Path, chunks)
				if err != nil {
					log.Fatal(err)
				}
				fmt.Printf("%s: %d chunks\n", doc.Path, n)
			}
		},
	}
	cmdExtract.Flags().BoolVarP(&recursive, "recursive", "r", false, "Read from subdirectories")
	cmdExtract.Flags().StringVarP(&extractCollection, "collection", "c", "extracted", "Target collection")

	var cmdImport = &cobra.Command{
		Use:   "import [archive.zst]",
		Short: "Import documents from a zstd bundle",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			count, err := ingest.ImportBundle(globalStore, args[0], importCollection)
			if err != nil {
				log.Fatal(err)
			}
			if count == 0 {
				fmt.Println("Warning: Archive processed but 0 documents found. Expected format: ```markdown path/to/file.md")
			} else {
				fmt.Printf("Imported %d documents into '%s'.\n", count, importCollection)
			}
		},
	}
	cmdImport.Flags().StringVarP(&importCollection, "collection", "c", "imported", "Target collection")

	var cmdExport = &cobra.Command{
		Use:   "export [archive.zst]",
		Short: "Export stored documents to a zstd bundle",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			count, err := ingest.ExportBundle(globalStore, exportCollection, args[0])
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("Exported %d documents to %s.\n", count, args[0])
		},
	}
	cmdExport.Flags().StringVarP(&exportCollection, "collection", "c", "", "Only export this collection")

	var cmdFigures = &cobra.Command{
		Use:   "figures [paper.md]",
		Short: "Extract figure references from a PDF markdown dump",
		Long: "Scans a markdown conversion of a PDF for 'Figure N.' captions and their\n" +
			"image references. With --describe each image is sent to the vision model\n" +
			"and the description is stored as a searchable image document.",
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			mdText, err := os.ReadFile(args[0])
			if err != nil {
				log.Fatal(err)
			}

			figs := figures.ExtractFigures(string(mdText))
			if len(figs) == 0 {
				fmt.Println("No figures found.")
				return
			}

			if doDescribe {
				describer := figures.NewDescriber(
					llm.NewGenerator(globalConfig.OllamaURL, globalConfig.VisionModel))
				figs, err = describer.DescribeAll(context.Background(), filepath.Dir(args[0]), figs)
				if err != nil {
					log.Printf("Warning: %v", err)
				}
			}

			for _, fig := range figs {
				fmt.Printf("%s %s\n  image: %s\n", fig.Number, fig.Caption, fig.ImagePath)
				if fig.Description != "" {
					fmt.Printf("  description: %s\n", util.Ellipsis(fig.Description, 200))
				}
			}

			if figuresCollection != "" {
				baseDir := filepath.Dir(args[0])
				stored := 0
				for _, fig := range figs {
					imgPath := fig.ImagePath
					if !filepath.IsAbs(imgPath) {
						imgPath = filepath.Join(baseDir, imgPath)
					}
					doc, err := figures.NewImageDocument(imgPath, fig.Caption)
					if err != nil {
						log.Printf("Skipping %s: %v", fig.ImagePath, err)
						continue
					}
					doc.Collection = figuresCollection
					if fig.Description != "" {
						doc.Content += "figure description: " + fig.Description + "\n"
					}
					if _, err := globalStore.AddDocument(doc, true); err != nil {
						log.Printf("Error storing %s: %v", fig.ImagePath, err)
						continue
					}
					stored++
				}
				fmt.Printf("Stored %d image documents in '%s'.\n", stored, figuresCollection)
			}
		},
	}
	cmdFigures.Flags().BoolVar(&doDescribe, "describe", false, "Describe each figure with the vision model")
	cmdFigures.Flags().StringVarP(&figuresCollection, "collection", "c", "", "Store image documents in this collection")

	var cmdDescribe = &cobra.Command{
		Use:   "describe [image] [prompt...]",
		Short: "Describe an image with the vision model",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			prompt := "Describe this image."
			if len(args) > 1 {
				prompt = strings.Join(args[1:], " ")
			}

			gen := llm.NewGenerator(globalConfig.OllamaURL, globalConfig.VisionModel)
			out, err := gen.Describe(context.Background(), args[0], prompt)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(out)
		},
	}

	var cmdChat = &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat over the indexed documents",
		Run: func(cmd *cobra.Command, args []string) {
			var embedder llm.Embedder
			var err error

			if globalConfig.EmbeddingsConfigured {
				embedder, err = getEmbedder()
				if err != nil {
					log.Printf("Warning: Failed to initialize embedder: %v. Vector search will be unavailable.", err)
					embedder = nil
				} else {
					defer embedder.Close()
				}
			}

			if debugLog != "" {
				if err := util.InitDebugLogger(debugLog); err != nil {
					log.Printf("Warning: debug log unavailable: %v", err)
				} else {
					defer util.CloseDebugLogger()
				}
			}

			mcpSrv := mcpserver.NewServer(globalStore, embedder)
			session, err := chat.NewSession(globalConfig.OllamaURL, globalConfig.ChatModel, mcpSrv)
			if err != nil {
				log.Fatal(err)
			}
			if err := session.Start(context.Background()); err != nil {
				log.Fatal(err)
			}
		},
	}
	cmdChat.Flags().StringVar(&debugLog, "debug-log", "", "Write debug output to this file")

	var cmdServe = &cobra.Command{
		Use:   "serve",
		Short: "Start MCP server",
		Run: func(cmd *cobra.Command, args []string) {
			var embedder llm.Embedder
			var err error

			if globalConfig.EmbeddingsConfigured {
				embedder, err = getEmbedder()
				if err != nil {
					log.Printf("Warning: Failed to initialize embedder: %v. Vector search will be unavailable.", err)
					embedder = nil
				} else {
					defer embedder.Close()
				}
			} else {
				log.Println("Embeddings not configured. Vector search unavailable.")
			}

			mcpSrv := mcpserver.NewServer(globalStore, embedder)

			log.SetOutput(os.Stderr)
			if err := mcpSrv.Start(); err != nil {
				log.Fatal(err)
			}
		},
	}

	rootCmd.AddCommand(cmdAdd, cmdUpdate, cmdRead, cmdInfo, cmdEmbed,
		cmdSearch, cmdVSearch, cmdQuery, cmdIndex, cmdExtract,
		cmdImport, cmdExport, cmdFigures, cmdDescribe, cmdChat, cmdServe)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
