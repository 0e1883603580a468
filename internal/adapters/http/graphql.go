package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/usecases"
)

var errGraphQLUnauthorized = errors.New("insufficient permissions")

// buildSchema creates the GraphQL schema wired to our use cases.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	gymType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Gym",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"title":       &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"phone":       &graphql.Field{Type: graphql.String},
			"latitude":    &graphql.Field{Type: graphql.Float},
			"longitude":   &graphql.Field{Type: graphql.Float},
			"distance":    &graphql.Field{Type: graphql.Float},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	checkInType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CheckIn",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"user_id":      &graphql.Field{Type: graphql.String},
			"gym_id":       &graphql.Field{Type: graphql.String},
			"created_at":   &graphql.Field{Type: graphql.DateTime},
			"validated_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.String},
			"name":  &graphql.Field{Type: graphql.String},
			"email": &graphql.Field{Type: graphql.String},
			"role": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if u, ok := p.Source.(*domain.User); ok {
						return string(u.Role), nil
					}
					return nil, nil
				},
			},
			"created_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	metricsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "UserMetrics",
		Fields: graphql.Fields{
			"check_ins_count": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"me": &graphql.Field{
				Type:        userType,
				Description: "Profile of the authenticated member",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					caller, _ := PrincipalFromCtx(p.Context)
					return deps.UserProfile.Execute(p.Context, usecases.GetUserProfileInput{UserID: caller.UserID})
				},
			},
			"searchGyms": &graphql.Field{
				Type:        graphql.NewList(gymType),
				Description: "Search gyms by title, 20 per page",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"page":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.SearchGyms.Execute(p.Context, usecases.SearchGymsInput{
						Query: p.Args["query"].(string),
						Page:  p.Args["page"].(int),
					})
				},
			},
			"nearbyGyms": &graphql.Field{
				Type:        graphql.NewList(gymType),
				Description: "Gyms within 10 km, closest first",
				Args: graphql.FieldConfigArgument{
					"latitude":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.NearbyGyms.Execute(p.Context, usecases.FetchNearbyGymsInput{
						UserLatitude:  p.Args["latitude"].(float64),
						UserLongitude: p.Args["longitude"].(float64),
					})
				},
			},
			"checkInHistory": &graphql.Field{
				Type:        graphql.NewList(checkInType),
				Description: "The member's check-ins, newest first",
				Args: graphql.FieldConfigArgument{
					"page": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					caller, _ := PrincipalFromCtx(p.Context)
					return deps.CheckInHistory.Execute(p.Context, usecases.FetchCheckInHistoryInput{
						UserID: caller.UserID,
						Page:   p.Args["page"].(int),
					})
				},
			},
			"checkInMetrics": &graphql.Field{
				Type:        metricsType,
				Description: "The member's total check-ins",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					caller, _ := PrincipalFromCtx(p.Context)
					return deps.UserMetrics.Execute(p.Context, usecases.GetUserMetricsInput{UserID: caller.UserID})
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createCheckIn": &graphql.Field{
				Type:        checkInType,
				Description: "Check in at a gym from the given position",
				Args: graphql.FieldConfigArgument{
					"gym_id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"latitude":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					caller, _ := PrincipalFromCtx(p.Context)
					return deps.CreateCheckIn.Execute(p.Context, usecases.CreateCheckInInput{
						UserID:        caller.UserID,
						GymID:         p.Args["gym_id"].(string),
						UserLatitude:  p.Args["latitude"].(float64),
						UserLongitude: p.Args["longitude"].(float64),
					})
				},
			},
			"validateCheckIn": &graphql.Field{
				Type:        checkInType,
				Description: "Validate a pending check-in (admin only)",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					caller, _ := PrincipalFromCtx(p.Context)
					if caller.Role != domain.RoleAdmin {
						return nil, errGraphQLUnauthorized
					}
					return deps.ValidateCheckIn.Execute(p.Context, usecases.ValidateCheckInInput{
						CheckInID: p.Args["id"].(string),
					})
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
